package comparator

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duprank/pkg/attribute"
	"duprank/pkg/criteria"
	"duprank/pkg/entity"
)

var base = time.Date(2018, 6, 15, 12, 0, 0, 0, time.UTC)

func newComparator(t *testing.T, spec string, opts ...Option) *Comparator {
	t.Helper()

	chain, err := criteria.Parse(spec, attribute.DefaultRegistry())
	require.NoError(t, err)
	return New(chain, opts...)
}

func file(path string, size int64, age time.Duration) *entity.Entity {
	return entity.NewFile(path, size, base.Add(age), 1, 1)
}

func TestComparator_SingleCriterion(t *testing.T) {
	small := file("/r/b", 1, 0)
	large := file("/r/a", 9, 0)

	assert.Negative(t, newComparator(t, "s").Compare(small, large))
	assert.Positive(t, newComparator(t, "S").Compare(small, large))
	assert.Positive(t, newComparator(t, "a").Compare(small, large))
	assert.Negative(t, newComparator(t, "A").Compare(small, large))
}

func TestComparator_DirectionInversion(t *testing.T) {
	a := file("/r/ax", 1, time.Hour)
	b := file("/r/bx", 3, 0)

	for _, letter := range "afdsmhlop" {
		lower := newComparator(t, string(letter)+"f")
		upperSpec := string([]rune{letter - 'a' + 'A'}) + "f"
		upper := newComparator(t, upperSpec)

		chain := lower.Chain()
		x := attribute.NewExtractor()
		va, err := x.Value(a, chain[0].Attribute)
		require.NoError(t, err)
		vb, err := x.Value(b, chain[0].Attribute)
		require.NoError(t, err)

		if va.Compare(vb) == 0 {
			// Tie on this criterion: both directions fall through to the same path order.
			assert.Equal(t, lower.Compare(a, b), upper.Compare(a, b), "letter %q", letter)
			continue
		}
		assert.Equal(t, -lower.Compare(a, b), upper.Compare(a, b), "letter %q", letter)
	}
}

func TestComparator_TieBreakLocality(t *testing.T) {
	// a and b tie on size; c is strictly larger.
	a := file("/r/z", 5, 0)
	b := file("/r/y", 5, time.Hour)
	c := file("/r/x", 7, -time.Hour)

	sm := newComparator(t, "sm")
	sM := newComparator(t, "sM")

	// The later criterion flips only the tied pair.
	assert.Negative(t, sm.Compare(a, b))
	assert.Positive(t, sM.Compare(a, b))

	assert.Negative(t, sm.Compare(a, c))
	assert.Negative(t, sM.Compare(a, c))
	assert.Negative(t, sm.Compare(b, c))
	assert.Negative(t, sM.Compare(b, c))
}

func TestComparator_FallbackPath(t *testing.T) {
	a := file("/r/a", 5, 0)
	b := file("/r/b", 5, 0)

	for _, spec := range []string{"s", "S", "m", "h", "d"} {
		c := newComparator(t, spec)
		assert.Negative(t, c.Compare(a, b), spec)
		assert.Positive(t, c.Compare(b, a), spec)
	}

	assert.Zero(t, newComparator(t, "s").Compare(a, a))
}

func TestComparator_FilesBeforeDirectoriesOnSamePath(t *testing.T) {
	f := file("/r/same", 2, 0)
	d := entity.NewDirectory("/r/same", []*entity.Entity{file("/r/same/x", 2, 0)})

	c := newComparator(t, "a")
	assert.Negative(t, c.Compare(f, d))
	assert.Positive(t, c.Compare(d, f))
}

func TestComparator_PreferredWinsOverChain(t *testing.T) {
	plain := file("/r/a", 1, -time.Hour)
	preferred := file("/r/z", 9, time.Hour)
	preferred.Preferred = true

	for _, spec := range []string{"f", "s", "m", "A"} {
		c := newComparator(t, spec)
		assert.Negative(t, c.Compare(preferred, plain), spec)
		assert.Positive(t, c.Compare(plain, preferred), spec)
	}

	other := file("/r/b", 1, 0)
	other.Preferred = true
	assert.Negative(t, newComparator(t, "s").Compare(other, preferred), "the chain decides between preferred files")
}

func TestComparator_UnavailableSkipsCriterion(t *testing.T) {
	a := file("/r/a", 1, 0)
	a.Unresolved = entity.AttrHardlinks
	a.Nlink = 9
	b := file("/r/b", 1, 0)
	b.Nlink = 2

	diags := NewDiagnostics()
	c := newComparator(t, "Hs", WithDiagnostics(diags))

	// Hardlinks are skipped for this pair; size ties; path decides.
	assert.Negative(t, c.Compare(a, b))
	assert.Negative(t, c.Compare(a, b))

	list := diags.List()
	require.Len(t, list, 1)
	assert.Equal(t, "/r/a", list[0].Path)
	assert.Equal(t, "hardlinks", list[0].Attribute)
	assert.ErrorIs(t, list[0].Err, attribute.ErrAttributeUnavailable)
	assert.Equal(t, 1, c.Diagnostics().Len())
}

func TestComparator_StrictTotalOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	entities := make([]*entity.Entity, 0, 40)
	for i := range 40 {
		e := entity.NewFile(
			filepath.Join("/r", string(rune('a'+rng.Intn(5))), string(rune('a'+i%26))+string(rune('a'+i/26))),
			int64(rng.Intn(3)),
			base.Add(time.Duration(rng.Intn(3))*time.Hour),
			rng.Intn(3),
			uint64(rng.Intn(2)+1),
		)
		entities = append(entities, e)
	}

	for _, spec := range []string{"", "s", "SA", "hd", "mf", "oL"} {
		c := newComparator(t, spec)
		for _, x := range entities {
			for _, y := range entities {
				r := c.Compare(x, y)
				if x == y {
					assert.Zero(t, r)
					continue
				}
				assert.NotZero(t, r, "spec %q: %s vs %s", spec, x.Path, y.Path)
				assert.Equal(t, sign(r), -sign(c.Compare(y, x)), "antisymmetry")
				for _, z := range entities {
					if c.Less(x, y) && c.Less(y, z) {
						assert.True(t, c.Less(x, z), "transitivity")
					}
				}
			}
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
