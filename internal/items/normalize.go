package items

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"d2stats/internal"
)

const (
	containerKey     = "DOTAAbilities"
	versionKey       = "Version"
	fieldObsolete    = "IsObsolete"
	fieldCost        = "ItemCost"
	fieldNeutralDrop = "ItemIsNeutralDrop"
	fieldBags        = "AbilitySpecial"
)

type Options struct {
	DropUseless bool
	// StrictNeutralDrop makes ErrUnspecifiedTriState fatal instead of a
	// logged warning.
	StrictNeutralDrop bool
}

type Normalizer struct {
	interp *Interpreter
	opts   Options
	log    logrus.FieldLogger
}

func NewNormalizer(rules *RuleSet, opts Options, log logrus.FieldLogger) *Normalizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Normalizer{interp: NewInterpreter(rules), opts: opts, log: log}
}

// ParseItemFeed returns the raw item definitions of the feed in document
// order, without the version marker.
func ParseItemFeed(doc []byte) ([]internal.RawItemDefinition, string, error) {
	if !gjson.ValidBytes(doc) {
		return nil, "", fmt.Errorf("%w: item feed is not valid json", ErrMalformedInput)
	}
	container := gjson.GetBytes(doc, containerKey)
	if !container.IsObject() {
		return nil, "", fmt.Errorf("%w: item feed has no %s object", ErrMalformedInput, containerKey)
	}

	version := ""
	out := []internal.RawItemDefinition{}
	container.ForEach(func(key, value gjson.Result) bool {
		if key.Str == versionKey {
			version = value.String()
			return true
		}
		out = append(out, internal.RawItemDefinition{ID: key.Str, Doc: value})
		return true
	})
	return out, version, nil
}

// Normalize parses the item feed and normalizes every item in it.
func (n *Normalizer) Normalize(doc []byte) ([]internal.NormalizedItem, error) {
	raw, _, err := ParseItemFeed(doc)
	if err != nil {
		return nil, err
	}
	return n.NormalizeDefinitions(raw)
}

func (n *Normalizer) NormalizeDefinitions(raw []internal.RawItemDefinition) ([]internal.NormalizedItem, error) {
	out := make([]internal.NormalizedItem, 0, len(raw))
	skippedObsolete, droppedUseless := 0, 0
	for _, def := range raw {
		item, keep, err := n.normalizeOne(def)
		if err != nil {
			return nil, err
		}
		if !keep {
			skippedObsolete++
			continue
		}
		if n.opts.DropUseless && item.IsUseless {
			droppedUseless++
			continue
		}
		out = append(out, item)
	}

	n.log.WithFields(logrus.Fields{
		"raw":      len(raw),
		"kept":     len(out),
		"obsolete": skippedObsolete,
		"useless":  droppedUseless,
	}).Debug("items normalized")
	return out, nil
}

// normalizeOne returns keep=false for obsolete items.
func (n *Normalizer) normalizeOne(def internal.RawItemDefinition) (internal.NormalizedItem, bool, error) {
	item := internal.NewNormalizedItem(def.ID)
	if !def.Doc.IsObject() {
		return item, false, fmt.Errorf("%w: %s: definition is %s, want object", ErrMalformedInput, def.ID, describe(def.Doc))
	}

	obsolete, err := parseObsolete(def.Doc.Get(fieldObsolete))
	if err != nil {
		return item, false, fmt.Errorf("%s.%s: %w", def.ID, fieldObsolete, err)
	}
	if obsolete {
		return item, false, nil
	}

	if item.Cost, err = parseCost(def.Doc.Get(fieldCost)); err != nil {
		return item, false, fmt.Errorf("%s.%s: %w", def.ID, fieldCost, err)
	}

	neutral, err := parseNeutralDrop(def.Doc.Get(fieldNeutralDrop))
	switch {
	case errors.Is(err, ErrUnspecifiedTriState) && !n.opts.StrictNeutralDrop:
		n.log.WithField("item", def.ID).WithError(err).Warn("treating item as non-neutral")
	case err != nil:
		return item, false, fmt.Errorf("%s.%s: %w", def.ID, fieldNeutralDrop, err)
	default:
		item.IsNeutral = neutral
	}

	matched := false
	if bags := def.Doc.Get(fieldBags); bags.Exists() {
		if !bags.IsArray() {
			return item, false, fmt.Errorf("%w: %s.%s is %s, want array", ErrMalformedInput, def.ID, fieldBags, describe(bags))
		}
		for _, bag := range bags.Array() {
			ok, err := n.interp.Apply(def.ID, bag, &item)
			if err != nil {
				return item, false, err
			}
			matched = matched || ok
		}
	}
	item.IsUseless = !matched
	return item, true, nil
}

func parseObsolete(r gjson.Result) (bool, error) {
	if !r.Exists() {
		return false, nil
	}
	v, err := ValueOf(r)
	if err != nil {
		return false, err
	}
	n, err := v.Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func parseCost(r gjson.Result) (int, error) {
	if !r.Exists() {
		return 0, nil
	}
	v, err := ValueOf(r)
	if err != nil {
		return 0, err
	}
	if v.Kind() == KindString && v.s == "" {
		return 0, nil
	}
	return v.Int()
}

func parseNeutralDrop(r gjson.Result) (bool, error) {
	if !r.Exists() {
		return false, nil
	}
	if r.Type != gjson.String && r.Type != gjson.Number {
		return false, fmt.Errorf("%w: neutral-drop marker is %s", ErrMalformedInput, describe(r))
	}
	switch r.String() {
	case "", "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnspecifiedTriState, r.String())
	}
}
