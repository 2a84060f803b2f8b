package pipeline

import (
	"context"
	"dashd/internal/structures"
	"dashd/internal/testutil"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mergeFixture struct {
	docs    *testutil.MockDocStore
	usage   *testutil.MockUsageService
	metrics *testutil.MockMetrics
	dir     string
	merger  MergerInterface
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()

	f := &mergeFixture{
		docs:    &testutil.MockDocStore{},
		usage:   &testutil.MockUsageService{},
		metrics: &testutil.MockMetrics{},
		dir:     t.TempDir(),
	}
	conf := &structures.Config{Downloads: structures.Downloads{Dir: f.dir}}
	files, err := NewFileWriter(conf, &testutil.MockLogger{})
	require.NoError(t, err)
	f.merger = NewMerger(files, f.docs, f.usage, &testutil.MockLogger{}, f.metrics)
	return f
}

func inputs(files ...string) []MergeInput {
	out := make([]MergeInput, 0, len(files))
	for i, content := range files {
		out = append(out, MergeInput{
			Name:   fmt.Sprintf("file%d.csv", i+1),
			Reader: strings.NewReader(content),
		})
	}
	return out
}

func TestMerger_Merge_RealignsByFirstFileHeader(t *testing.T) {
	f := newMergeFixture(t)

	// Second file carries the same columns in the opposite order.
	info, err := f.merger.Merge(context.Background(), inputs(
		"name,score\nbob,0.9\n",
		"score,name\n0.7,eve\n",
	))
	require.NoError(t, err)

	data, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	assert.Equal(t, "name,score\nbob,0.9\neve,0.7\n", string(data))
	assert.Equal(t, 1, f.metrics.Merges)
}

func TestMerger_Merge_MissingColumnsComeOutEmpty(t *testing.T) {
	f := newMergeFixture(t)

	info, err := f.merger.Merge(context.Background(), inputs(
		"name,score,year\nbob,0.9,2024\n",
		"name\neve\n",
	))
	require.NoError(t, err)

	data, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	assert.Equal(t, "name,score,year\nbob,0.9,2024\neve,,\n", string(data))
}

func TestMerger_Merge_SkipsAllEmptyRows(t *testing.T) {
	f := newMergeFixture(t)

	info, err := f.merger.Merge(context.Background(), inputs(
		"name,score\nbob,0.9\n,\n",
		"name,score\n,\neve,0.7\n",
	))
	require.NoError(t, err)

	data, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	assert.Equal(t, "name,score\nbob,0.9\neve,0.7\n", string(data))
}

func TestMerger_Merge_OutputNameCarriesDate(t *testing.T) {
	f := newMergeFixture(t)

	info, err := f.merger.Merge(context.Background(), inputs("a\n1\n", "a\n2\n"))
	require.NoError(t, err)

	want := fmt.Sprintf("merged_csv_%s.csv", time.Now().UTC().Format("2006-01-02"))
	assert.Equal(t, want, info.Filename)
}

func TestMerger_Merge_TooFewFiles(t *testing.T) {
	f := newMergeFixture(t)

	_, err := f.merger.Merge(context.Background(), inputs("a\n1\n"))
	assert.ErrorIs(t, err, ErrTooFewFiles)

	_, err = f.merger.Merge(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTooFewFiles)
}

func TestMerger_Merge_EmptyFirstFile(t *testing.T) {
	f := newMergeFixture(t)

	_, err := f.merger.Merge(context.Background(), inputs("", "a\n1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file1.csv")
}

func TestMerger_Merge_RecordsActivityForIdentity(t *testing.T) {
	f := newMergeFixture(t)
	f.usage.IdentityVal = "alice"

	_, err := f.merger.Merge(context.Background(), inputs("a\n1\n", "a\n2\n", "a\n3\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.docs.ActivityCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "merge_csv", f.docs.Activities[0].Action)
	assert.Equal(t, 3, f.docs.Activities[0].FileCount)
}

func TestMerger_Merge_AnonymousSkipsActivityLog(t *testing.T) {
	f := newMergeFixture(t)

	_, err := f.merger.Merge(context.Background(), inputs("a\n1\n", "a\n2\n"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.docs.ActivityCount())
}
