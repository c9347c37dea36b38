package items

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// Policy decides what happens to a recognized bonus value before it is
// written into the item.
type Policy uint8

const (
	PolicyApply Policy = iota
	PolicyIgnore
	PolicyNegate
)

func (p Policy) String() string {
	switch p {
	case PolicyApply:
		return "apply"
	case PolicyIgnore:
		return "ignore"
	case PolicyNegate:
		return "negate"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "apply":
		return PolicyApply, nil
	case "ignore":
		return PolicyIgnore, nil
	case "negate":
		return PolicyNegate, nil
	default:
		return 0, fmt.Errorf("unknown rule policy: %q", s)
	}
}

type ruleKey struct {
	item string
	key  string
}

// RuleSet holds per-item exceptions for bonus keys the feed reuses between
// passive stats and activated effects. An (item, key) entry wins over the
// key default; keys with neither are applied.
type RuleSet struct {
	defaults  map[string]Policy
	overrides map[ruleKey]Policy
}

func NewRuleSet() *RuleSet {
	return &RuleSet{
		defaults:  map[string]Policy{},
		overrides: map[ruleKey]Policy{},
	}
}

// DefaultRules returns the exceptions known for the current feed.
func DefaultRules() *RuleSet {
	rs := NewRuleSet()
	// Damage is gated behind the active.
	rs.Set("item_enchanted_quiver", KeyBonusDamage, PolicyIgnore)
	// Speed bonus only while the active is running.
	rs.Set("item_hurricane_pike", KeyBonusAttackSpeed, PolicyIgnore)
	rs.Set("item_bloodthorn", KeyCritMultiplier, PolicyIgnore)
	rs.Set("item_bloodthorn", KeyCritChance, PolicyIgnore)
	// "armor" only means corruption for the orb, and is stored positive there.
	rs.SetDefault(KeyArmor, PolicyIgnore)
	rs.Set("item_orb_of_corrosion", KeyArmor, PolicyNegate)
	return rs
}

func (rs *RuleSet) Set(itemID, key string, p Policy) {
	rs.overrides[ruleKey{item: itemID, key: key}] = p
}

func (rs *RuleSet) SetDefault(key string, p Policy) {
	rs.defaults[key] = p
}

func (rs *RuleSet) Policy(itemID, key string) Policy {
	if rs == nil {
		return PolicyApply
	}
	if p, ok := rs.overrides[ruleKey{item: itemID, key: key}]; ok {
		return p
	}
	if p, ok := rs.defaults[key]; ok {
		return p
	}
	return PolicyApply
}

func (rs *RuleSet) Len() int {
	return len(rs.defaults) + len(rs.overrides)
}

// Merge reads rules from a JSON array:
//
//	[{"item": "item_x", "key": "bonus_damage", "policy": "ignore"},
//	 {"key": "armor", "policy": "ignore"}]
//
// An entry without "item" sets the key default.
func (rs *RuleSet) Merge(doc []byte) error {
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("rules: invalid json")
	}
	root := gjson.ParseBytes(doc)
	if !root.IsArray() {
		return fmt.Errorf("rules: expected a json array")
	}

	var err error
	root.ForEach(func(idx, entry gjson.Result) bool {
		key := strings.TrimSpace(entry.Get("key").String())
		if key == "" {
			err = fmt.Errorf("rules[%d]: missing key", idx.Int())
			return false
		}
		p, perr := ParsePolicy(entry.Get("policy").String())
		if perr != nil {
			err = fmt.Errorf("rules[%d]: %w", idx.Int(), perr)
			return false
		}
		if item := strings.TrimSpace(entry.Get("item").String()); item != "" {
			rs.Set(item, key, p)
		} else {
			rs.SetDefault(key, p)
		}
		return true
	})
	return err
}

// LoadRuleSet returns the default rules extended with the file at path.
// An empty path yields the defaults.
func LoadRuleSet(path string) (*RuleSet, error) {
	rs := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rs, nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := rs.Merge(blob); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}
