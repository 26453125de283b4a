package templates

import "embed"

//go:embed reports/*.hbs
var Reports embed.FS
