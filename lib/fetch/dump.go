package fetch

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// DumpOutput receives full request/response transcripts for offline
// inspection of scraped pages.
type DumpOutput interface {
	Write(id string, contents string)
}

var dumpOutput atomic.Pointer[DumpOutput]
var dumpCounter uint64

// SetDumpOutput turns on http transcript dumping for every client in
// the process. pass nil to turn it back off.
func SetDumpOutput(out DumpOutput) {
	if out == nil {
		dumpOutput.Store(nil)
		return
	}
	dumpOutput.Store(&out)
}

type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) FilesystemOutput {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		slog.Warn("failed to create http dump directory", "dir", dir, "err", err)
	}
	return FilesystemOutput{directory: dir}
}

func (f FilesystemOutput) Write(id string, contents string) {
	file := filepath.Join(f.directory, fmt.Sprintf("%s.txt", id))
	err := os.WriteFile(file, []byte(contents), 0644)
	if err != nil {
		slog.Warn("failed to write http dump", "file", file, "err", err)
	}
}

func dumpResponse(res *resty.Response) {
	outptr := dumpOutput.Load()
	if outptr == nil {
		return
	}
	id := strconv.FormatUint(atomic.AddUint64(&dumpCounter, 1), 10)
	(*outptr).Write(id, formatHttpMessage(res))
	slog.Debug(
		"dumped http transcript",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"id", id,
	)
}

func formatHeaders(headers http.Header) string {
	var out strings.Builder
	for k, vals := range headers {
		for _, v := range vals {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

const messageTemplate = `---- REQUEST ----

%s %s

%s

---- RESPONSE ----

%s %s

%s

%s`

func formatHttpMessage(res *resty.Response) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}

	responseUrl := res.Request.URL
	if redirected, err := res.RawResponse.Location(); err == nil {
		responseUrl = redirected.String()
	}

	return fmt.Sprintf(
		messageTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,

		strconv.Itoa(res.StatusCode()), responseUrl,
		formatHeaders(res.Header()),
		res.String(),
	)
}
