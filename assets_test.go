package modelview

import (
	"io/fs"
	"strings"
	"testing"
)

func TestPanelAssetsFSContainsStylesheet(t *testing.T) {
	fsys := PanelAssetsFS()
	data, err := fs.ReadFile(fsys, "modelview.css")
	if err != nil {
		t.Fatalf("expected stylesheet to be readable: %v", err)
	}
	if !strings.Contains(string(data), ".mv-panel") {
		t.Fatalf("expected stylesheet to style the panel root")
	}
}

func TestPanelAssetsFSScriptBindsSearch(t *testing.T) {
	fsys := PanelAssetsFS()
	data, err := fs.ReadFile(fsys, "modelview.js")
	if err != nil {
		t.Fatalf("expected client script to be readable: %v", err)
	}
	if !strings.Contains(string(data), "modelview:search") {
		t.Fatalf("expected client script to emit the search event")
	}
}
