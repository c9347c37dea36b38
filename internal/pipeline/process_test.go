package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"d2stats/internal"
	"d2stats/internal/config"
	"d2stats/internal/items"
	"d2stats/internal/storage"
)

func newTestService(t *testing.T) (*ProcessingService, *storage.DB, string) {
	t.Helper()
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg, _ := config.Load()
	cfg.OutputDir = tmp
	cfg.OutputFile = "Dota2Data.xlsx"
	cfg.DropUselessItems = true
	cfg.NeutralDropStrict = false
	cfg.ItemRulesFile = ""
	cfg.OpenAfterExport = false

	svc, err := NewProcessingService(db, cfg)
	require.NoError(t, err)
	return svc, db, tmp
}

func fixtureFiles() DocumentFiles {
	return DocumentFiles{
		Items:  filepath.Join("testdata", "items.json"),
		Names:  filepath.Join("testdata", "names.json"),
		Heroes: filepath.Join("testdata", "heroes.json"),
	}
}

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestRunFromFilesExportsWorkbook(t *testing.T) {
	svc, db, tmp := newTestService(t)

	res, err := svc.Run(context.Background(), RunOptions{Files: fixtureFiles()})
	require.NoError(t, err)
	assert.Equal(t, "7.38", res.ItemVersion)
	assert.Equal(t, 3, res.Items)
	assert.Equal(t, 2, res.Heroes)
	assert.Equal(t, 2, res.Resolved)
	assert.Equal(t, filepath.Join(tmp, "Dota2Data.xlsx"), res.OutputPath)

	itemRows := readSheet(t, res.OutputPath, ItemsSheet)
	assert.Equal(t, [][]string{
		{"Daedalus", "5100", "88", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "2.25", "0.3", "false"},
		{"Orb of Corrosion", "875", "0", "0", "0", "0", "0", "0", "0", "-3", "0", "0.25", "0.25", "1", "0", "false"},
		{"item_pupils_gift", "0", "0", "0", "0", "0", "5", "5", "5", "0", "0", "0", "0", "1", "0", "true"},
	}, itemRows)

	heroRows := readSheet(t, res.OutputPath, HeroesSheet)
	assert.Equal(t, [][]string{
		{"Anti-Mage", "agi", "Melee", "1.4", "100"},
		{"Axe", "str", "Melee", "1.7", "100"},
	}, heroRows)

	runs, err := db.ListRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, res.TraceID, runs[0].TraceID)
}

func TestRunKeepUseless(t *testing.T) {
	svc, _, tmp := newTestService(t)

	res, err := svc.Run(context.Background(), RunOptions{
		Files:       fixtureFiles(),
		KeepUseless: true,
		Output:      filepath.Join(tmp, "all.xlsx"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Items)

	rows := readSheet(t, res.OutputPath, ItemsSheet)
	require.Len(t, rows, 4)
	assert.Equal(t, "Blink Dagger", rows[0][0])
	assert.Equal(t, "2250", rows[0][1])
}

func TestRunIsIdempotent(t *testing.T) {
	svc, _, tmp := newTestService(t)

	first, err := svc.Run(context.Background(), RunOptions{Files: fixtureFiles(), Output: filepath.Join(tmp, "a.xlsx")})
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), RunOptions{Files: fixtureFiles(), Output: filepath.Join(tmp, "b.xlsx")})
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, readSheet(t, first.OutputPath, ItemsSheet), readSheet(t, second.OutputPath, ItemsSheet))
	assert.Equal(t, readSheet(t, first.OutputPath, HeroesSheet), readSheet(t, second.OutputPath, HeroesSheet))
}

func TestRunMalformedLeavesNoOutput(t *testing.T) {
	svc, db, tmp := newTestService(t)
	files := fixtureFiles()
	files.Items = filepath.Join("testdata", "items_malformed.json")

	_, err := svc.Run(context.Background(), RunOptions{Files: files})
	require.ErrorIs(t, err, items.ErrMalformedInput)

	_, statErr := os.Stat(filepath.Join(tmp, "Dota2Data.xlsx"))
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".xlsx", filepath.Ext(e.Name()), e.Name())
	}

	runs, err := db.ListRuns(5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunRemovesWorkbookWhenRunNotRecorded(t *testing.T) {
	svc, db, tmp := newTestService(t)
	require.NoError(t, db.Close())

	_, err := svc.Run(context.Background(), RunOptions{Files: fixtureFiles()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record run")

	_, statErr := os.Stat(filepath.Join(tmp, "Dota2Data.xlsx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunOfflineNeedsSnapshots(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Run(context.Background(), RunOptions{Offline: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feeds:sync")
}

func TestRunOfflineWithFileOverride(t *testing.T) {
	svc, db, _ := newTestService(t)
	files := fixtureFiles()
	for feed, path := range map[internal.FeedName]string{internal.FeedItems: files.Items, internal.FeedItemNames: files.Names} {
		body, err := os.ReadFile(path)
		require.NoError(t, err)
		_, _, err = db.InsertSnapshot(feed, "", string(feed), body)
		require.NoError(t, err)
	}
	_, _, err := db.InsertSnapshot(internal.FeedHeroes, "", "stale", []byte(`{"1": {}}`))
	require.NoError(t, err)

	res, err := svc.Run(context.Background(), RunOptions{Offline: true, Files: DocumentFiles{Heroes: files.Heroes}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Heroes)
}

func TestExportRunReproducesWorkbook(t *testing.T) {
	svc, _, tmp := newTestService(t)

	res, err := svc.Run(context.Background(), RunOptions{Files: fixtureFiles()})
	require.NoError(t, err)

	again := filepath.Join(tmp, "again", "export.xlsx")
	require.NoError(t, svc.ExportRun(res.RunID, again))
	assert.Equal(t, readSheet(t, res.OutputPath, ItemsSheet), readSheet(t, again, ItemsSheet))
	assert.Equal(t, readSheet(t, res.OutputPath, HeroesSheet), readSheet(t, again, HeroesSheet))

	assert.Error(t, svc.ExportRun(res.RunID+100, filepath.Join(tmp, "missing.xlsx")))
}
