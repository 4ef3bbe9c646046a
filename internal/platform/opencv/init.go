//go:build gocv

package opencv

import (
	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/vision"
)

func init() {
	platform.NewMatcherFunc = func() (platform.Matcher, error) {
		return Matcher{}, nil
	}
	vision.SetFilters(Filters{})
}
