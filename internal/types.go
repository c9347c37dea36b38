package internal

import "github.com/tidwall/gjson"

type FeedName string

const (
	FeedItems     FeedName = "items"
	FeedItemNames FeedName = "item_names"
	FeedHeroes    FeedName = "heroes"
)

// AllFeeds is the order in which feeds are fetched and reported.
var AllFeeds = []FeedName{FeedItems, FeedItemNames, FeedHeroes}

const BaseAttackSpeed = 100

type RawItemDefinition struct {
	ID  string
	Doc gjson.Result
}

type NormalizedItem struct {
	Name              string
	Damage            int
	DamageMelee       int
	DamageRanged      int
	AttackSpeed       int
	Str               int
	Agi               int
	Int               int
	ArmorCorruption   int
	MagicDamage       int
	MagicChanceMelee  float64
	MagicChanceRanged float64
	CritMultiplier    float64
	CritChance        float64
	Cost              int
	IsNeutral         bool
	IsUseless         bool
}

// NewNormalizedItem returns the record every raw item starts from.
func NewNormalizedItem(id string) NormalizedItem {
	return NormalizedItem{
		Name:           id,
		CritMultiplier: 1.0,
		IsUseless:      true,
	}
}

type HeroRecord struct {
	Name             string
	PrimaryAttribute string
	AttackType       string
	BaseAttackTime   float64
	BaseAttackSpeed  int
}

type FeedDocuments struct {
	Items     []byte
	ItemNames []byte
	Heroes    []byte
}

func (d FeedDocuments) Get(name FeedName) []byte {
	switch name {
	case FeedItems:
		return d.Items
	case FeedItemNames:
		return d.ItemNames
	case FeedHeroes:
		return d.Heroes
	default:
		return nil
	}
}

func (d *FeedDocuments) Set(name FeedName, body []byte) {
	switch name {
	case FeedItems:
		d.Items = body
	case FeedItemNames:
		d.ItemNames = body
	case FeedHeroes:
		d.Heroes = body
	}
}

type FeedSnapshot struct {
	ID        int
	Feed      FeedName
	Version   string
	Hash      string
	Body      []byte
	FetchedAt string
}

type RunRow struct {
	ID          int
	TraceID     string
	ItemVersion string
	ItemCount   int
	HeroCount   int
	OutputPath  string
	CreatedAt   string
}

type ItemCategory struct {
	Name     string
	Category string
}
