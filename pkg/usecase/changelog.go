package usecase

import (
	"strings"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/model"
)

// draftChangelog renders the release notes draft: a release-title heading
// followed by one bullet per commit summary, in commit order.
func draftChangelog(version *model.Version, entries []string) string {
	var b strings.Builder
	b.WriteString("# Release " + version.String() + "\n\n")
	for _, entry := range entries {
		b.WriteString("- " + entry + "\n")
	}
	return b.String()
}

// commitMessage derives the commit message from the edited changelog by
// stripping the heading marker, so the first line reads "Release <version>".
func commitMessage(changelog string) string {
	return strings.TrimSpace(strings.TrimPrefix(changelog, "# "))
}
