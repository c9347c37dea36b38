package items

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestValueOfKinds(t *testing.T) {
	cases := []struct {
		raw  string
		kind Kind
	}{
		{raw: `5`, kind: KindInt},
		{raw: `-12`, kind: KindInt},
		{raw: `5.5`, kind: KindFloat},
		{raw: `1e2`, kind: KindFloat},
		{raw: `"10"`, kind: KindString},
		{raw: `""`, kind: KindString},
	}
	for _, tc := range cases {
		v, err := ValueOf(gjson.Parse(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.kind, v.Kind(), tc.raw)
	}

	for _, raw := range []string{`null`, `true`, `{}`, `[1]`} {
		_, err := ValueOf(gjson.Parse(raw))
		assert.ErrorIs(t, err, ErrMalformedInput, raw)
	}
}

func TestValueInt(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want int
	}{
		{name: "int", v: IntValue(7), want: 7},
		{name: "float truncates", v: FloatValue(12.9), want: 12},
		{name: "negative float truncates toward zero", v: FloatValue(-3.7), want: -3},
		{name: "string", v: StringValue("-4"), want: -4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.v.Int()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, s := range []string{"", "12.5", "ten", " 5"} {
		_, err := StringValue(s).Int()
		assert.ErrorIs(t, err, ErrMalformedInput, s)
	}
}

func TestValueIntOutOfRange(t *testing.T) {
	huge, err := ValueOf(gjson.Parse(`99999999999999999999`))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, huge.Kind())

	for _, v := range []Value{huge, FloatValue(1e300), FloatValue(-1e300)} {
		_, err := v.Int()
		assert.ErrorIs(t, err, ErrMalformedInput)
	}

	_, err = StringValue("99999999999999999999").Int()
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValueFloatAndPercent(t *testing.T) {
	f, err := StringValue("12.5").Float()
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	p, err := StringValue("25").Percent()
	require.NoError(t, err)
	assert.Equal(t, 0.25, p)

	p, err = IntValue(175).Percent()
	require.NoError(t, err)
	assert.Equal(t, 1.75, p)

	_, err = StringValue("quarter").Percent()
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = Value{}.Float()
	assert.ErrorIs(t, err, ErrMalformedInput)
}
