package heroes

import (
	"fmt"

	"github.com/tidwall/gjson"

	"d2stats/internal"
	"d2stats/internal/items"
)

// Normalize maps every entry of the hero feed to a HeroRecord, in document
// order. Any missing or mistyped field aborts with items.ErrMalformedInput.
func Normalize(doc []byte) ([]internal.HeroRecord, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: hero feed is not valid json", items.ErrMalformedInput)
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: hero feed is not an object", items.ErrMalformedInput)
	}

	out := []internal.HeroRecord{}
	var err error
	root.ForEach(func(id, entry gjson.Result) bool {
		var hero internal.HeroRecord
		hero, err = normalizeOne(entry)
		if err != nil {
			err = fmt.Errorf("hero %s: %w", id.String(), err)
			return false
		}
		out = append(out, hero)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeOne(entry gjson.Result) (internal.HeroRecord, error) {
	if !entry.IsObject() {
		return internal.HeroRecord{}, fmt.Errorf("%w: entry is not an object", items.ErrMalformedInput)
	}
	name, err := requiredString(entry, "localized_name")
	if err != nil {
		return internal.HeroRecord{}, err
	}
	attr, err := requiredString(entry, "primary_attr")
	if err != nil {
		return internal.HeroRecord{}, err
	}
	attackType, err := requiredString(entry, "attack_type")
	if err != nil {
		return internal.HeroRecord{}, err
	}

	rate := entry.Get("attack_rate")
	if !rate.Exists() {
		return internal.HeroRecord{}, fmt.Errorf("%w: missing attack_rate", items.ErrMalformedInput)
	}
	v, err := items.ValueOf(rate)
	if err != nil {
		return internal.HeroRecord{}, fmt.Errorf("attack_rate: %w", err)
	}
	bat, err := v.Float()
	if err != nil {
		return internal.HeroRecord{}, fmt.Errorf("attack_rate: %w", err)
	}

	return internal.HeroRecord{
		Name:             name,
		PrimaryAttribute: attr,
		AttackType:       attackType,
		BaseAttackTime:   bat,
		BaseAttackSpeed:  internal.BaseAttackSpeed,
	}, nil
}

func requiredString(entry gjson.Result, field string) (string, error) {
	r := entry.Get(field)
	if !r.Exists() {
		return "", fmt.Errorf("%w: missing %s", items.ErrMalformedInput, field)
	}
	if r.Type != gjson.String {
		return "", fmt.Errorf("%w: %s is not a string", items.ErrMalformedInput, field)
	}
	return r.Str, nil
}
