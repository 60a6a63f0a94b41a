package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/comilla/site-backend/internal/domain/attachments"
)

const multipartMemory = 8 << 20

var errUnsupportedBody = errors.New("unsupported content type")

// requestBody is a request's fields and image uploads, whichever encoding
// the client used: JSON, urlencoded form or multipart form.
type requestBody struct {
	values  map[string]string
	uploads map[int]attachments.Upload
}

// field returns the first non-empty value among names.
func (b *requestBody) field(names ...string) string {
	for _, name := range names {
		if v := b.values[name]; v != "" {
			return v
		}
	}
	return ""
}

func readBody(r *http.Request) (*requestBody, error) {
	body := &requestBody{values: map[string]string{}, uploads: map[int]attachments.Upload{}}

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("parse content type: %w", err)
		}
		mediaType = parsed
	}

	switch mediaType {
	case "application/json":
		return body, readJSON(r, body)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for key := range r.PostForm {
			body.values[key] = r.PostForm.Get(key)
		}
		return body, nil
	case "multipart/form-data":
		return body, readMultipart(r, body)
	case "":
		if r.ContentLength == 0 {
			return body, nil
		}
		return body, readJSON(r, body)
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedBody, mediaType)
	}
}

func readJSON(r *http.Request, body *requestBody) error {
	raw := map[string]any{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("decode json: %w", err)
	}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			body.values[key] = v
		case json.Number, bool:
			body.values[key] = fmt.Sprint(v)
		}
	}
	return nil
}

func readMultipart(r *http.Request, body *requestBody) error {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return err
	}
	for key, vals := range r.MultipartForm.Value {
		if len(vals) > 0 {
			body.values[key] = vals[0]
		}
	}
	for slot := 1; slot <= attachments.SlotCount; slot++ {
		headers := r.MultipartForm.File[fmt.Sprintf("image%d", slot)]
		if len(headers) == 0 {
			continue
		}
		upload, err := readUpload(headers[0])
		if err != nil {
			return fmt.Errorf("read image%d: %w", slot, err)
		}
		if len(upload.Data) > 0 {
			body.uploads[slot] = upload
		}
	}
	return nil
}

func readUpload(header *multipart.FileHeader) (attachments.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return attachments.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return attachments.Upload{}, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	return attachments.Upload{Data: data, ContentType: contentType, Filename: header.Filename}, nil
}
