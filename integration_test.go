// +build integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattsolo1/nb-tagger/internal/tui/dialog"
	"github.com/mattsolo1/nb-tagger/pkg/bulk"
	"github.com/mattsolo1/nb-tagger/pkg/kv"
	"github.com/mattsolo1/nb-tagger/pkg/service"
	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
)

func TestIntegration(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=1 to run.")
	}

	tmpDir := t.TempDir()
	ctx := context.Background()

	for _, kind := range []kv.Kind{kv.KindSQLite, kv.KindBolt} {
		t.Run(string(kind), func(t *testing.T) {
			dataDir := filepath.Join(tmpDir, string(kind))
			config := &service.Config{DataDir: dataDir, Backend: kind}

			svc, err := service.New(config, nil)
			if err != nil {
				t.Fatalf("Failed to create service: %v", err)
			}
			if _, err := svc.AddTags(ctx, "nb1", "research", "draft"); err != nil {
				t.Fatalf("AddTags: %v", err)
			}
			if _, err := svc.Rename(ctx, "draft", "final"); err != nil {
				t.Fatalf("Rename: %v", err)
			}

			exportDir := filepath.Join(tmpDir, "export-"+string(kind))
			d := &bulk.DirDownloader{Dir: exportDir}
			if _, err := svc.Export(ctx, d); err != nil {
				t.Fatalf("Export: %v", err)
			}
			svc.Close()

			// Reopen to check the data survived.
			svc, err = service.New(config, nil)
			if err != nil {
				t.Fatalf("Reopen: %v", err)
			}
			defer svc.Close()

			m, err := svc.List(ctx, "nb1")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got := strings.Join(m["nb1"], ","); got != "research,final" {
				t.Errorf("tags after reopen = %q", got)
			}

			data, err := os.ReadFile(d.Saved)
			if err != nil {
				t.Fatalf("read export: %v", err)
			}
			fresh := service.NewWithBackend(&service.Config{}, kv.NewMemory(), nil)
			var out bytes.Buffer
			if err := fresh.Import(ctx, bytes.NewReader(data), dialog.NewAssume(true, &out)); err != nil {
				t.Fatalf("Import: %v", err)
			}
			all, _ := fresh.List(ctx, "")
			if len(all) != 1 || !tagstore.Contains(all["nb1"], "final") {
				t.Errorf("imported map = %v", all)
			}
		})
	}
}
