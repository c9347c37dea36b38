package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"d2stats/internal"
	"d2stats/internal/util"
)

const (
	ItemsSheet  = "Items"
	HeroesSheet = "Heroes"
)

func itemRow(it internal.NormalizedItem) []interface{} {
	return []interface{}{
		it.Name,
		util.FormatInt(it.Cost),
		util.FormatInt(it.Damage),
		util.FormatInt(it.DamageMelee),
		util.FormatInt(it.DamageRanged),
		util.FormatInt(it.AttackSpeed),
		util.FormatInt(it.Str),
		util.FormatInt(it.Agi),
		util.FormatInt(it.Int),
		util.FormatInt(it.ArmorCorruption),
		util.FormatInt(it.MagicDamage),
		util.FormatFloat(it.MagicChanceMelee),
		util.FormatFloat(it.MagicChanceRanged),
		util.FormatFloat(it.CritMultiplier),
		util.FormatFloat(it.CritChance),
		util.FormatBool(it.IsNeutral),
	}
}

func heroRow(h internal.HeroRecord) []interface{} {
	return []interface{}{
		h.Name,
		h.PrimaryAttribute,
		h.AttackType,
		util.FormatFloat(h.BaseAttackTime),
		util.FormatInt(h.BaseAttackSpeed),
	}
}

// ExportWorkbook writes items and heroes to an xlsx file at outputPath.
// The file only appears once it has been written completely.
func ExportWorkbook(items []internal.NormalizedItem, heroes []internal.HeroRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ItemsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(HeroesSheet); err != nil {
		return err
	}

	for i, it := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := itemRow(it)
		if err := f.SetSheetRow(ItemsSheet, cell, &row); err != nil {
			return fmt.Errorf("items row %d: %w", i+1, err)
		}
	}
	for i, h := range heroes {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := heroRow(h)
		if err := f.SetSheetRow(HeroesSheet, cell, &row); err != nil {
			return fmt.Errorf("heroes row %d: %w", i+1, err)
		}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".export-*.xlsx")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, outputPath)
}
