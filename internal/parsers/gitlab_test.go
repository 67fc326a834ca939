package parsers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateGitlabExpr(t *testing.T) {
	assert.Equal(t, `env.CI_COMMIT_BRANCH == "main"`, translateGitlabExpr(`$CI_COMMIT_BRANCH == "main"`))
	assert.Equal(t, "env.A && env.B", translateGitlabExpr("$A && $B"))
}

func TestDeriveJobIf(t *testing.T) {
	cases := []struct {
		name  string
		rules []GitlabRule
		want  string
	}{
		{
			name:  "no rules",
			rules: nil,
			want:  "",
		},
		{
			name:  "single conditioned rule",
			rules: []GitlabRule{{If: `$CI_COMMIT_BRANCH == "main"`}},
			want:  `(env.CI_COMMIT_BRANCH == "main")`,
		},
		{
			name: "unconditioned rule always runs",
			rules: []GitlabRule{
				{If: `$CI_COMMIT_BRANCH == "main"`},
				{},
			},
			want: "",
		},
		{
			name: "trailing never rule excludes it but keeps earlier matches",
			rules: []GitlabRule{
				{If: `$CI_COMMIT_BRANCH == "main"`},
				{When: "never"},
			},
			want: `(env.CI_COMMIT_BRANCH == "main")`,
		},
		{
			name:  "only a never rule never runs",
			rules: []GitlabRule{{When: "never"}},
			want:  "false",
		},
		{
			name: "multiple conditioned rules join with or",
			rules: []GitlabRule{
				{If: "$A"},
				{If: "$B"},
			},
			want: "(env.A) || (env.B)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveJobIf(tc.rules))
		})
	}
}

func TestParseJobRulesSetsJobIf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitlab-ci.yml")
	content := `
deploy:
  stage: deploy
  script:
    - echo deploying
  rules:
    - if: '$CI_COMMIT_BRANCH == "main"'
      when: on_success
    - when: never
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pipeline, err := NewGitlabParser().Parse(path)
	require.NoError(t, err)

	job, ok := pipeline.Jobs["deploy"]
	require.True(t, ok)
	assert.Equal(t, `(env.CI_COMMIT_BRANCH == "main")`, job.If)
	require.Len(t, job.Rules, 2)
}
