package transport

import (
	"bytes"
	"mime/multipart"
	"net/url"
	"sort"
)

const FormContentType = "application/x-www-form-urlencoded"

// File is a binary part of a multipart body.
type File struct {
	Field string
	Name  string
	Data  []byte
}

// EncodeForm renders params as a url-encoded form body.
func EncodeForm(params map[string]string) []byte {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return []byte(values.Encode())
}

// EncodeMultipart renders params and file as a multipart/form-data body and
// returns it with its content type.
func EncodeMultipart(params map[string]string, file File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, params[k]); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile(file.Field, file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
