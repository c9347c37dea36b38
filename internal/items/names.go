package items

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"d2stats/internal"
)

const (
	ItemPrefix       = "item_"
	fieldDisplayName = "dname"
)

// DisplayNameIndex maps short item names (identifier without ItemPrefix)
// to human-readable names. Entries without a display name are absent.
type DisplayNameIndex map[string]string

func ParseDisplayNameIndex(doc []byte) (DisplayNameIndex, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: display-name feed is not valid json", ErrMalformedInput)
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: display-name feed is %s, want object", ErrMalformedInput, describe(root))
	}

	idx := DisplayNameIndex{}
	var err error
	root.ForEach(func(key, meta gjson.Result) bool {
		if !meta.IsObject() {
			return true
		}
		dname := meta.Get(fieldDisplayName)
		if !dname.Exists() {
			return true
		}
		if dname.Type != gjson.String {
			err = fmt.Errorf("%w: %s.%s is %s, want string", ErrMalformedInput, key.Str, fieldDisplayName, describe(dname))
			return false
		}
		idx[key.Str] = dname.Str
		return true
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// ShortName strips the category prefix from an item identifier.
func ShortName(id string) string {
	return strings.TrimPrefix(id, ItemPrefix)
}

// ResolveDisplayNames replaces item names found in idx and returns how many
// were replaced. Misses keep the identifier as it is.
func ResolveDisplayNames(list []internal.NormalizedItem, idx DisplayNameIndex) int {
	resolved := 0
	for i := range list {
		if name, ok := idx[ShortName(list[i].Name)]; ok {
			list[i].Name = name
			resolved++
		}
	}
	return resolved
}
