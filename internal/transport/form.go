package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"stockboard/internal/media"
	"stockboard/internal/middleware"
	"stockboard/internal/service"
)

const (
	maxMultipartMemory = 32 << 20
	displayImageField  = "displayImageFile"
	albumFilesField    = "albumFiles"
)

// maxMultipartBytes caps a whole multipart product save: a display image
// plus a small album.
var maxMultipartBytes int64 = 64 << 20

var errMalformedForm = errors.New("malformed product form")

// flexString accepts a JSON string, number or boolean and keeps its text.
// Numbers stay unparsed so the form validator reports them.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		return fmt.Errorf("expected a scalar, got %s", raw)
	}
	*s = flexString(raw)
	return nil
}

// flexList accepts a delimited string or an array of strings.
type flexList struct {
	text  string
	items []string
}

func (l *flexList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, &l.items); err == nil {
		return nil
	}
	return json.Unmarshal(data, &l.text)
}

func (l flexList) join(sep string) string {
	if l.items != nil {
		return strings.Join(l.items, sep)
	}
	return l.text
}

// productRequest is the JSON product form.
type productRequest struct {
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	MRP          flexString `json:"mrp"`
	Price        flexString `json:"price"`
	Stock        flexString `json:"stock"`
	Tags         flexList   `json:"tags"`
	Description  string     `json:"description"`
	DisplayImage string     `json:"displayImage"`
	Album        flexList   `json:"album"`
	Enabled      *bool      `json:"enabled"`
}

func (req productRequest) form() service.ProductForm {
	return service.ProductForm{
		Name:         req.Name,
		Category:     req.Category,
		MRP:          string(req.MRP),
		Price:        string(req.Price),
		Stock:        string(req.Stock),
		Tags:         req.Tags.join(","),
		Description:  req.Description,
		DisplayImage: req.DisplayImage,
		Album:        req.Album.join("\n"),
		Enabled:      req.Enabled == nil || *req.Enabled,
	}
}

// productSubmission is a decoded product save. Close releases uploaded
// file handles.
type productSubmission struct {
	form    service.ProductForm
	uploads service.ImageUploads
	files   []multipart.File
}

func (s *productSubmission) Close() {
	for _, f := range s.files {
		_ = f.Close()
	}
}

// decodeProductForm reads a product save from a multipart form or a JSON
// body. A missing enabled flag means enabled.
func decodeProductForm(w http.ResponseWriter, r *http.Request) (*productSubmission, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
		return decodeMultipartForm(r)
	}

	var req productRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", middleware.ErrMalformedBody, err)
	}
	return &productSubmission{form: req.form()}, nil
}

func decodeMultipartForm(r *http.Request) (*productSubmission, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedForm, err)
	}

	enabled := true
	if raw := r.FormValue("enabled"); raw != "" {
		if raw == "on" {
			raw = "true"
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: enabled must be a boolean", errMalformedForm)
		}
		enabled = v
	}

	sub := &productSubmission{
		form: service.ProductForm{
			Name:         r.FormValue("name"),
			Category:     r.FormValue("category"),
			MRP:          r.FormValue("mrp"),
			Price:        r.FormValue("price"),
			Stock:        r.FormValue("stock"),
			Tags:         r.FormValue("tags"),
			Description:  r.FormValue("description"),
			DisplayImage: r.FormValue("displayImage"),
			Album:        r.FormValue("album"),
			Enabled:      enabled,
		},
	}

	open := func(fh *multipart.FileHeader) (media.File, error) {
		f, err := fh.Open()
		if err != nil {
			return media.File{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		sub.files = append(sub.files, f)
		return media.File{Name: fh.Filename, Reader: f}, nil
	}

	if headers := r.MultipartForm.File[displayImageField]; len(headers) > 0 {
		file, err := open(headers[0])
		if err != nil {
			sub.Close()
			return nil, err
		}
		sub.uploads.DisplayImage = &file
	}
	for _, fh := range r.MultipartForm.File[albumFilesField] {
		file, err := open(fh)
		if err != nil {
			sub.Close()
			return nil, err
		}
		sub.uploads.Album = append(sub.uploads.Album, file)
	}

	return sub, nil
}
