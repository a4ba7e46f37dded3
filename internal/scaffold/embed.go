// Package scaffold embeds the starter files 'convene init' installs into
// a project: a commented convene.yml and a policy overlay pre-filled with
// the built-in defaults.
package scaffold

import "embed"

// StarterFS contains the embedded starter files, rooted at "starter/".
//
//go:embed all:starter
var StarterFS embed.FS
