package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *core.Result {
	t.Helper()

	first := core.NewTable([]string{"id", "email"},
		[]string{"1", "a@x.com"},
		[]string{"2", "b@x.com"},
		[]string{"3", "c@x.com"},
	)
	second := core.NewTable([]string{"email"}, []string{"A@X.COM"})

	rules, err := core.ValidateRules([]core.ComparisonRule{{Name: "Email", Column1: "email", Column2: "email"}})
	require.NoError(t, err)
	return core.Reconcile(first, second, rules)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleResult(t), Options{}))

	out := buf.String()
	assert.Contains(t, strings.ToLower(out), "comparison summary")
	assert.Contains(t, out, "Rows in first file")
	assert.Contains(t, out, "33.33%")
}

func TestWriteUnmatched(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUnmatched(&buf, sampleResult(t), Options{}))

	out := buf.String()
	assert.Contains(t, out, "b@x.com")
	assert.Contains(t, out, "c@x.com")
	assert.NotContains(t, out, "a@x.com")
	assert.NotContains(t, out, "rows shown")
}

func TestWriteUnmatched_MaxRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUnmatched(&buf, sampleResult(t), Options{MaxRows: 1}))

	out := buf.String()
	assert.Contains(t, out, "b@x.com")
	assert.NotContains(t, out, "c@x.com")
	assert.Contains(t, strings.ToLower(out), "1 of 2 rows shown")
}

func TestWriteMatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatches(&buf, sampleResult(t), Options{}))

	out := buf.String()
	assert.Contains(t, out, "Email")
	assert.Contains(t, out, "a@x.com")
}

func TestWritePreview(t *testing.T) {
	p, err := core.PreviewTable(strings.NewReader("id,name\n1,Ann\n2,Bob\n"), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePreview(&buf, "crm.csv", p, Options{}))

	out := buf.String()
	assert.Contains(t, out, "crm.csv")
	assert.Contains(t, out, "Ann")
	assert.NotContains(t, out, "Bob")
	assert.Contains(t, strings.ToLower(out), "2 rows")
}

func TestWriteRules(t *testing.T) {
	rules := []core.ComparisonRule{
		{Name: "Email", Column1: "email", Column2: "contact_email"},
		{Name: "rule-2", Column1: "phone", Column2: "phone"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, "billing", rules, Options{}))

	out := buf.String()
	assert.Contains(t, out, "contact_email")
	assert.Contains(t, out, "rule-2")
	assert.Less(t, strings.Index(out, "Email"), strings.Index(out, "rule-2"), "rules keep priority order")
}
