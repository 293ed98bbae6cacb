package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// MessageOutput receives a rendered request/response pair for every finished request.
type MessageOutput interface {
	Write(id string, contents string)
}

// FilesystemOutput writes every message into `<dir>/<id>.txt`.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears and recreates `dir` so it only holds the dumps of
// a single run.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}

func writeHeaders(b *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(b, "%s: %s\n", k, v)
		}
	}
}

func requestBody(req *http.Request) string {
	if req.GetBody == nil {
		return "<NO BODY AVAILABLE>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(contents)
}

func responseUrl(res *resty.Response) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL.String()
	}
	return res.Request.URL
}

// renderExchange renders a request and its response, the response url is the
// one reached after redirects.
func renderExchange(res *resty.Response) string {
	var b strings.Builder

	b.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&b, "%s %s\n\n", res.Request.Method, res.Request.URL)
	raw := res.Request.RawRequest
	if raw != nil {
		writeHeaders(&b, raw.Header)
		b.WriteString("\n")
		b.WriteString(requestBody(raw))
	}

	b.WriteString("\n\n---- RESPONSE ----\n\n")
	fmt.Fprintf(&b, "%d %s\n\n", res.StatusCode(), responseUrl(res))
	writeHeaders(&b, res.Header())
	b.WriteString("\n")
	b.WriteString(res.String())

	return b.String()
}
