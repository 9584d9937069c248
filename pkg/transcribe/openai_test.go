package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

func TestOpenAIEngine(t *testing.T) {
	var gotModel, gotFormat, gotLang, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		gotLang = r.FormValue("language")
		f, _, err := r.FormFile("file")
		if err == nil {
			b, _ := io.ReadAll(f)
			gotFile = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"task":"transcribe","language":"thai","duration":2.5,"text":"one two","segments":[{"id":0,"text":"one"},{"id":1,"text":"two"}]}`)
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithBaseURL(srv.URL+"/"), option.WithAPIKey("test"))
	tr := New(&OpenAI{Client: &client}, WithTempDir(t.TempDir()), WithLanguage("th"))

	got, err := tr.Transcribe(context.Background(), []byte("ID3 fake mp3"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "one\ntwo" {
		t.Fatalf("Transcribe = %q", got)
	}
	if gotModel != "whisper-1" || gotFormat != "verbose_json" || gotLang != "th" {
		t.Fatalf("model=%q format=%q language=%q", gotModel, gotFormat, gotLang)
	}
	if gotFile != "ID3 fake mp3" {
		t.Fatalf("uploaded file = %q", gotFile)
	}
}
