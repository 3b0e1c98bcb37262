package update

import (
	"testing"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

func TestKeyString(t *testing.T) {
	k := Key{Prefix: 'p', Index: 42}
	if got := k.String(); got != "p42" {
		t.Errorf("String = %q, want %q", got, "p42")
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	for _, want := range []Key{
		{Prefix: 'o', Index: 0},
		{Prefix: 'p', Index: 42},
		{Prefix: 'b', Index: 18446744073709551615},
	} {
		got, err := ParseKey(want.String())
		if err != nil {
			t.Errorf("ParseKey(%q) failed: %v", want.String(), err)
			continue
		}
		if got != want {
			t.Errorf("ParseKey(%q) = %+v, want %+v", want.String(), got, want)
		}
	}
}

func TestParseKeyErrors(t *testing.T) {
	for _, s := range []string{"", "p", "pabc", "p-1", "p1.5"} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q) succeeded, want error", s)
		}
	}
}

func TestValuesAt(t *testing.T) {
	v := Values{
		{Prefix: 'p', Index: 1}: {Position: dsg.Vec3{1, 2, 3}},
	}
	pose, ok := v.At(Key{Prefix: 'p', Index: 1})
	if !ok || pose.Position != (dsg.Vec3{1, 2, 3}) {
		t.Errorf("At = %+v, %v", pose, ok)
	}
	if _, ok := v.At(Key{Prefix: 'p', Index: 2}); ok {
		t.Error("absent key reported as solved")
	}
	if !v.Has(Key{Prefix: 'p', Index: 1}) || v.Has(Key{Prefix: 'o', Index: 1}) {
		t.Error("Has disagrees with contents")
	}
}
