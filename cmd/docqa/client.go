package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/models"
)

var httpClient = &http.Client{Timeout: 5 * time.Minute}

type askPayload struct {
	Question string `json:"question"`
	FileID   string `json:"file_id"`
	Mode     string `json:"mode,omitempty"`
	K        int    `json:"k,omitempty"`
}

// apiError turns a non-success response into an error carrying the server's message.
func apiError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return fmt.Errorf("%s (%d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func doJSON(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func postJSON(endpoint string, payload interface{}, wantStatus int, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(req, wantStatus, out)
}

func askViaHTTP(serverURL string, payload askPayload) (*models.Answer, error) {
	var answer models.Answer
	if err := postJSON(serverURL+"/ask", payload, http.StatusOK, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func uploadViaHTTP(serverURL, name string, content []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out struct {
		ID string `json:"Id"`
	}
	if err := doJSON(req, http.StatusOK, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func listViaHTTP(serverURL string) ([]cli.FileEntry, error) {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/files", nil)
	if err != nil {
		return nil, err
	}
	var files []cli.FileEntry
	if err := doJSON(req, http.StatusOK, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func deleteViaHTTP(serverURL, id string) error {
	req, err := http.NewRequest(http.MethodDelete, serverURL+"/files/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return doJSON(req, http.StatusOK, nil)
}

func inboxListViaHTTP(serverURL string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/inbox/directories", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := doJSON(req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func inboxAddViaHTTP(serverURL, path string) error {
	return postJSON(serverURL+"/inbox/directories", map[string]interface{}{"path": path, "sync": true}, http.StatusCreated, nil)
}

func inboxRemoveViaHTTP(serverURL, path string) error {
	req, err := http.NewRequest(http.MethodDelete, serverURL+"/inbox/directories?path="+url.QueryEscape(path), nil)
	if err != nil {
		return err
	}
	return doJSON(req, http.StatusOK, nil)
}
