package git

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

func TestParseRepoFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantRepo string
		wantErr  bool
	}{
		{
			name:     "HTTPS URL with .git suffix",
			url:      "https://github.com/openjournals/joss.git",
			wantRepo: "openjournals/joss",
		},
		{
			name:     "HTTPS URL without .git suffix",
			url:      "https://github.com/openjournals/joss",
			wantRepo: "openjournals/joss",
		},
		{
			name:     "HTTPS URL with trailing slash",
			url:      "https://github.com/openjournals/joss/",
			wantRepo: "openjournals/joss",
		},
		{
			name:     "SSH URL with .git suffix",
			url:      "git@github.com:openjournals/joss.git",
			wantRepo: "openjournals/joss",
		},
		{
			name:     "SSH URL with different host",
			url:      "git@gitlab.com:owner/project.git",
			wantRepo: "owner/project",
		},
		{
			name:     "URL with whitespace trimmed",
			url:      "  https://github.com/owner/repo.git  ",
			wantRepo: "owner/repo",
		},
		{
			name:    "local path",
			url:     "/tmp/repoToAnalyse",
			wantErr: true,
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRepoFromURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidRemoteURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRepo, got)
		})
	}
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{name: "empty", content: "", want: 0},
		{name: "single line with newline", content: "a\n", want: 1},
		{name: "single line without newline", content: "a", want: 1},
		{name: "several lines", content: "a\nb\nc\n", want: 3},
		{name: "last line unterminated", content: "a\nb", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lineCount(tt.content))
		})
	}
}

func TestToValidPath(t *testing.T) {
	assert.Equal(t, "src/main.go", toValidPath("src/main.go"))
	assert.Equal(t, "bad\uFFFDname.txt", toValidPath("bad\xffname.txt"))
}

func TestChronological(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := func(b byte) plumbing.Hash {
		var hash plumbing.Hash
		hash[0] = b
		return hash
	}

	root := &commitNode{hash: h(9), when: base}
	// Same timestamp as root: must still follow it.
	child := &commitNode{hash: h(1), when: base, parents: []plumbing.Hash{h(9)}}
	// Older clock than its parent: parent order wins over time.
	skewed := &commitNode{hash: h(2), when: base.Add(-time.Hour), parents: []plumbing.Hash{h(1)}}
	side := &commitNode{hash: h(3), when: base.Add(time.Minute), parents: []plumbing.Hash{h(9)}}
	merge := &commitNode{hash: h(4), when: base.Add(time.Hour), parents: []plumbing.Hash{h(2), h(3)}}

	nodes := map[plumbing.Hash]*commitNode{}
	for _, n := range []*commitNode{root, child, skewed, side, merge} {
		nodes[n.hash] = n
	}

	got := chronological(nodes)

	assert.Equal(t, []string{
		h(9).String(),
		h(1).String(),
		h(2).String(),
		h(3).String(),
		h(4).String(),
	}, got)
}
