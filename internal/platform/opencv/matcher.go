//go:build gocv

package opencv

import (
	"image"

	"github.com/mj1618/onboard-cli/internal/platform"
	"gocv.io/x/gocv"
)

// Matcher runs TM_CCOEFF_NORMED on grayscale copies of frame and template.
type Matcher struct{}

func (Matcher) Find(frame, tmpl image.Image, threshold float64) (platform.Match, bool) {
	src, err := grayMat(frame)
	if err != nil {
		return platform.Match{}, false
	}
	defer src.Close()
	tpl, err := grayMat(tmpl)
	if err != nil {
		return platform.Match{}, false
	}
	defer tpl.Close()

	if tpl.Cols() > src.Cols() || tpl.Rows() > src.Rows() {
		return platform.Match{}, false
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(src, tpl, &result, gocv.TmCcoeffNormed, mask)

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	if float64(maxVal) < threshold {
		return platform.Match{}, false
	}
	w, h := tpl.Cols(), tpl.Rows()
	return platform.Match{
		X:      maxLoc.X + w/2,
		Y:      maxLoc.Y + h/2,
		Width:  w,
		Height: h,
		Score:  float64(maxVal),
	}, true
}

func grayMat(img image.Image) (gocv.Mat, error) {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer rgb.Close()
	gray := gocv.NewMat()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)
	return gray, nil
}
