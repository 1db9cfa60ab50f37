package density

import (
	"math/big"
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pilosa/zigtools/bigmath"
	"github.com/pkg/errors"
)

// DefaultCacheSize is a cache size that holds every point a 128 segment
// solve revisits.
const DefaultCacheSize = 4096

// Cached wraps fn with an LRU cache of the given size keyed on the exact
// argument and its precision. Errors are not cached. The returned function
// is safe for concurrent use if fn is, and always returns a fresh value.
func Cached(fn bigmath.Func, size int) (bigmath.Func, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "creating density cache")
	}
	return func(x *big.Float) (*big.Float, error) {
		key := x.Text('p', 0) + "/" + strconv.FormatUint(uint64(x.Prec()), 10)
		if v, ok := cache.Get(key); ok {
			return new(big.Float).Copy(v.(*big.Float)), nil
		}
		y, err := fn(x)
		if err != nil {
			return nil, err
		}
		cache.Add(key, new(big.Float).Copy(y))
		return y, nil
	}, nil
}
