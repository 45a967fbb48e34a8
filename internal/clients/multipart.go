package clients

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Multipart is a form body with plain fields and attached files.
type Multipart struct {
	Fields []Field
	Files  []File
}

type Field struct {
	Name  string
	Value string
}

// File is attached under Field. Data is read when set, otherwise Path.
type File struct {
	Field    string
	Filename string
	Path     string
	Data     []byte
}

func (m *Multipart) AddField(name, value string) {
	m.Fields = append(m.Fields, Field{Name: name, Value: value})
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, field := range m.Fields {
		if err := w.WriteField(field.Name, field.Value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range m.Files {
		if err := writeFile(w, file); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, file File) error {
	name := file.Filename
	if name == "" {
		name = filepath.Base(file.Path)
	}
	part, err := w.CreateFormFile(file.Field, name)
	if err != nil {
		return err
	}
	if file.Data != nil {
		_, err = part.Write(file.Data)
		return err
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(part, f)
	return err
}
