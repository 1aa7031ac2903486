package modelview

import (
	"embed"
	"io/fs"
)

//go:embed pkg/render/assets/*.css pkg/render/assets/*.js
var embeddedPanelAssets embed.FS

// PanelAssetsFS exposes the default panel stylesheet and client script
// (committed under pkg/render/assets) so Go applications can serve them
// without a build step.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(modelview.PanelAssetsFS()),
//	  ),
//	)
func PanelAssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedPanelAssets, "pkg/render/assets")
	if err != nil {
		return embeddedPanelAssets
	}
	return sub
}
