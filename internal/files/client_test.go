package files

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_FilesByIDs(t *testing.T) {
	var gotPath, gotProject string
	var gotBody getFilesRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotProject = r.URL.Query().Get("projectId")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"id":"f1","filename":"a.png","width":640,"height":480,"src":"/a.png"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	got, err := c.FilesByIDs(context.Background(), "p 1", []string{"f1", "f2"})
	require.NoError(t, err)

	require.Equal(t, "/api/get_files_by_ids", gotPath)
	require.Equal(t, "p 1", gotProject)
	require.Equal(t, []string{"f1", "f2"}, gotBody.FileIDs)
	require.Len(t, got, 1)
	require.Equal(t, "a.png", got[0].Filename)
	require.Equal(t, 640.0, got[0].Width)
}

func TestClient_FilesByIDs_NoIDs(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	got, err := c.FilesByIDs(context.Background(), "p1", nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestClient_FilesByIDs_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).FilesByIDs(context.Background(), "p1", []string{"f1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
