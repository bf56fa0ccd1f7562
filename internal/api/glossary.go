package api

import (
	"context"
	"net/url"
)

// GlossaryInfo summarizes the uploaded glossary for one language
type GlossaryInfo struct {
	Filename   string `json:"filename"`
	UploadTime string `json:"upload_time"`
	EntryCount int    `json:"entry_count"`
}

// GlossaryInfoResponse wraps the info endpoint payload
type GlossaryInfoResponse struct {
	Success  bool         `json:"success"`
	Glossary GlossaryInfo `json:"glossary"`
}

// GlossaryWordsResponse lists glossary words for one language
type GlossaryWordsResponse struct {
	Success bool     `json:"success"`
	Words   []string `json:"words"`
	Count   int      `json:"count"`
}

// GlossaryWordResponse reports one word mutation
type GlossaryWordResponse struct {
	Success    bool   `json:"success"`
	Word       string `json:"word"`
	TotalCount int    `json:"total_count"`
}

// GlossaryDeleteAllResponse reports a bulk glossary clear
type GlossaryDeleteAllResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}

// GlossaryUploadResponse reports a glossary file upload
type GlossaryUploadResponse struct {
	Success bool         `json:"success"`
	Stats   GlossaryInfo `json:"stats"`
}

// GetGlossaryInfo fetches the glossary summary for lang ("zh" or "ja")
func (c *Client) GetGlossaryInfo(ctx context.Context, lang string) (GlossaryInfoResponse, error) {
	var out GlossaryInfoResponse
	err := c.getJSON(ctx, "/api/glossary/info?lang="+url.QueryEscape(lang), &out)
	return out, err
}

// GetGlossaryWords fetches every glossary word for lang
func (c *Client) GetGlossaryWords(ctx context.Context, lang string) (GlossaryWordsResponse, error) {
	var out GlossaryWordsResponse
	err := c.getJSON(ctx, "/api/glossary/words?lang="+url.QueryEscape(lang), &out)
	return out, err
}

// AddGlossaryWord appends one word to the glossary
func (c *Client) AddGlossaryWord(ctx context.Context, lang, word string) (GlossaryWordResponse, error) {
	var out GlossaryWordResponse
	path := "/api/glossary/words?lang=" + url.QueryEscape(lang) + "&word=" + url.QueryEscape(word)
	err := c.postJSON(ctx, path, struct{}{}, &out)
	return out, err
}

// DeleteGlossaryWord removes one word from the glossary
func (c *Client) DeleteGlossaryWord(ctx context.Context, lang, word string) (GlossaryWordResponse, error) {
	var out GlossaryWordResponse
	path := "/api/glossary/words/" + url.PathEscape(word) + "?lang=" + url.QueryEscape(lang)
	err := c.delete(ctx, path, &out)
	return out, err
}

// DeleteAllGlossaryWords clears the glossary for lang
func (c *Client) DeleteAllGlossaryWords(ctx context.Context, lang string) (GlossaryDeleteAllResponse, error) {
	var out GlossaryDeleteAllResponse
	err := c.delete(ctx, "/api/glossary/words?lang="+url.QueryEscape(lang), &out)
	return out, err
}

// UploadGlossary replaces the glossary file for lang
func (c *Client) UploadGlossary(ctx context.Context, lang string, file UploadFile) (GlossaryUploadResponse, error) {
	file.Field = "file"
	var out GlossaryUploadResponse
	err := c.postMultipart(ctx, "/api/glossary/upload?lang="+url.QueryEscape(lang), []UploadFile{file}, nil, &out)
	return out, err
}
