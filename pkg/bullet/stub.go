//go:build !bullet

package bullet

// Open reports ErrUnavailable: this binary has no Bullet binding.
func Open(opts Options) (Engine, error) {
	return nil, ErrUnavailable
}
