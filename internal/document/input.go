package document

import (
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// Input reads the doc member of a write request. A missing or null doc is
// empty, so required fields are still enforced. Any other non-object value
// is reported at ["doc"].
func Input(raw any) (model.Doc, validate.Errors) {
	var errs validate.Errors
	switch v := raw.(type) {
	case nil:
		return model.Doc{}, errs
	case map[string]any:
		return v, errs
	default:
		errs.Add(validate.Path{"doc"}, validate.MsgObject)
		return model.Doc{}, errs
	}
}
