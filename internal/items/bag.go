package items

import (
	"fmt"

	"github.com/tidwall/gjson"

	"d2stats/internal"
)

const (
	KeyBonusStrength     = "bonus_strength"
	KeyBonusAgility      = "bonus_agility"
	KeyBonusIntellect    = "bonus_intellect"
	KeyBonusAllStats     = "bonus_all_stats"
	KeyBonusDamage       = "bonus_damage"
	KeyBonusDamageMelee  = "bonus_damage_melee"
	KeyBonusDamageRange  = "bonus_damage_range"
	KeyBonusAttackSpeed  = "bonus_attack_speed"
	KeyCorruptionArmor   = "corruption_armor"
	KeyArmor             = "armor"
	KeyChainDamage       = "chain_damage"
	KeyBonusChanceDamage = "bonus_chance_damage"
	KeyChainChance       = "chain_chance"
	KeyBonusChance       = "bonus_chance"
	KeyBashChanceMelee   = "bash_chance_melee"
	KeyBashChanceRanged  = "bash_chance_ranged"
	KeyCritMultiplier    = "crit_multiplier"
	KeyCritChance        = "crit_chance"
)

type bonusRule struct {
	key   string
	apply func(it *internal.NormalizedItem, v Value, p Policy) (bool, error)
}

// bonusRules is checked top to bottom; the first key present in a bag is
// the only one interpreted for that bag.
var bonusRules = []bonusRule{
	intRule(KeyBonusStrength, func(it *internal.NormalizedItem) *int { return &it.Str }),
	intRule(KeyBonusAgility, func(it *internal.NormalizedItem) *int { return &it.Agi }),
	intRule(KeyBonusIntellect, func(it *internal.NormalizedItem) *int { return &it.Int }),
	{key: KeyBonusAllStats, apply: applyAllStats},
	intRule(KeyBonusDamage, func(it *internal.NormalizedItem) *int { return &it.Damage }),
	intRule(KeyBonusDamageMelee, func(it *internal.NormalizedItem) *int { return &it.DamageMelee }),
	intRule(KeyBonusDamageRange, func(it *internal.NormalizedItem) *int { return &it.DamageRanged }),
	intRule(KeyBonusAttackSpeed, func(it *internal.NormalizedItem) *int { return &it.AttackSpeed }),
	intRule(KeyCorruptionArmor, func(it *internal.NormalizedItem) *int { return &it.ArmorCorruption }),
	intRule(KeyArmor, func(it *internal.NormalizedItem) *int { return &it.ArmorCorruption }),
	intRule(KeyChainDamage, func(it *internal.NormalizedItem) *int { return &it.MagicDamage }),
	intRule(KeyBonusChanceDamage, func(it *internal.NormalizedItem) *int { return &it.MagicDamage }),
	percentRule(KeyChainChance, meleeChance, rangedChance),
	percentRule(KeyBonusChance, meleeChance, rangedChance),
	percentRule(KeyBashChanceMelee, meleeChance),
	percentRule(KeyBashChanceRanged, rangedChance),
	percentRule(KeyCritMultiplier, func(it *internal.NormalizedItem) *float64 { return &it.CritMultiplier }),
	percentRule(KeyCritChance, func(it *internal.NormalizedItem) *float64 { return &it.CritChance }),
}

// RecognizedKeys lists the bonus keys in precedence order.
func RecognizedKeys() []string {
	out := make([]string, 0, len(bonusRules))
	for _, r := range bonusRules {
		out = append(out, r.key)
	}
	return out
}

func meleeChance(it *internal.NormalizedItem) *float64 { return &it.MagicChanceMelee }
func rangedChance(it *internal.NormalizedItem) *float64 { return &it.MagicChanceRanged }

func intRule(key string, field func(*internal.NormalizedItem) *int) bonusRule {
	return bonusRule{key: key, apply: func(it *internal.NormalizedItem, v Value, p Policy) (bool, error) {
		n, err := v.Int()
		if err != nil {
			return false, err
		}
		if p == PolicyNegate {
			n = -n
		}
		*field(it) = n
		return true, nil
	}}
}

func percentRule(key string, fields ...func(*internal.NormalizedItem) *float64) bonusRule {
	return bonusRule{key: key, apply: func(it *internal.NormalizedItem, v Value, p Policy) (bool, error) {
		f, err := v.Percent()
		if err != nil {
			return false, err
		}
		if p == PolicyNegate {
			f = -f
		}
		for _, field := range fields {
			*field(it) = f
		}
		return true, nil
	}}
}

func applyAllStats(it *internal.NormalizedItem, v Value, p Policy) (bool, error) {
	n, err := v.Int()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if p == PolicyNegate {
		n = -n
	}
	it.Str += n
	it.Agi += n
	it.Int += n
	return true, nil
}

// Interpreter applies one attribute bag at a time to an item record.
type Interpreter struct {
	rules *RuleSet
}

func NewInterpreter(rules *RuleSet) *Interpreter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Interpreter{rules: rules}
}

// Apply interprets bag for itemID and reports whether a recognized field
// was written. A recognized key suppressed by the rule set still ends the
// scan of the bag.
func (in *Interpreter) Apply(itemID string, bag gjson.Result, item *internal.NormalizedItem) (bool, error) {
	if !bag.IsObject() {
		return false, fmt.Errorf("%w: %s: attribute bag is %s, want object", ErrMalformedInput, itemID, describe(bag))
	}
	for _, rule := range bonusRules {
		raw := bag.Get(rule.key)
		if !raw.Exists() {
			continue
		}
		policy := in.rules.Policy(itemID, rule.key)
		if policy == PolicyIgnore {
			return false, nil
		}
		v, err := ValueOf(raw)
		if err != nil {
			return false, fmt.Errorf("%s.%s: %w", itemID, rule.key, err)
		}
		matched, err := rule.apply(item, v, policy)
		if err != nil {
			return false, fmt.Errorf("%s.%s: %w", itemID, rule.key, err)
		}
		return matched, nil
	}
	return false, nil
}
