package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadProber_Probe(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
		wantErr     bool
	}{
		{"quoted filename", `attachment; filename="report.pdf"`, "report.pdf", false},
		{"bare filename", `attachment; filename=data.csv`, "data.csv", false},
		{"no header", "", "", false},
		{"no filename parameter", "attachment", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead {
					t.Errorf("method = %s, want HEAD", r.Method)
				}
				if tt.disposition != "" {
					w.Header().Set("Content-Disposition", tt.disposition)
				}
			}))
			defer srv.Close()

			got, err := New().Probe(context.Background(), srv.URL+"/file")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Probe() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Probe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeadProber_FollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="moved.bin"`)
	}))
	defer final.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer redirecting.Close()

	got, err := New().Probe(context.Background(), redirecting.URL)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if got != "moved.bin" {
		t.Errorf("Probe() = %q, want %q", got, "moved.bin")
	}
}

func TestHeadProber_Unreachable(t *testing.T) {
	if _, err := New().Probe(context.Background(), "http://127.0.0.1:1/"); err == nil {
		t.Error("Probe() on unreachable host expected error, got nil")
	}
}
