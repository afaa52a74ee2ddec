package controlplane

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignPart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/uploads/parts/presign", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req PresignPartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent-1", req.AgentID)
		assert.Equal(t, int64(3), req.PartNumber)
		assert.Equal(t, "aabbcc", req.PartHash)

		json.NewEncoder(w).Encode(PresignPartResponse{URL: "https://store.example.com/signed"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	url, err := client.PresignPart(context.Background(), PresignPartRequest{
		AgentID:    "agent-1",
		PartNumber: 3,
		PartHash:   "aabbcc",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://store.example.com/signed", url)
}

func TestPresignPartEmptyURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PresignPartResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.PresignPart(context.Background(), PresignPartRequest{PartNumber: 1})
	assert.Error(t, err)
}

func TestAPIErrorCapturesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":"subscription expired"}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	err := client.FinishUpload(context.Background(), FinishUploadRequest{AgentID: "agent-1"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, `{"error":"subscription expired"}`, apiErr.Body)
}

func TestFinishUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/uploads/finish", r.URL.Path)

		var req FinishUploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hash123", req.ContentHash)
		assert.Len(t, req.Parts, 2)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "key") // trailing slash is trimmed
	err := client.FinishUpload(context.Background(), FinishUploadRequest{
		AgentID:     "agent-1",
		ObjectName:  "backup_appdb_010120260000",
		UploadID:    "upload-9",
		ContentHash: "hash123",
		PublicKey:   "pem",
		Parts: []CompletedPart{
			{PartNumber: 1, ETag: "e1"},
			{PartNumber: 2, ETag: "e2"},
		},
	})
	require.NoError(t, err)
}
