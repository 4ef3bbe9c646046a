package vision

import "image"

// equalize applies contrast-limited adaptive histogram equalisation: the
// image is split into tiles x tiles regions, each region's histogram is
// clipped at clip times the uniform bin height, and pixel values are mapped
// by bilinear interpolation between neighbouring region mappings.
func equalize(g *image.Gray, clip float64, tiles int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if tiles < 1 {
		tiles = 1
	}
	tilesX, tilesY := min(tiles, w), min(tiles, h)
	if tilesX == 0 || tilesY == 0 {
		return g
	}
	tw := (w + tilesX - 1) / tilesX
	th := (h + tilesY - 1) / tilesY

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)
			luts[ty*tilesX+tx] = tileLUT(g, x0, y0, x1, y1, clip)
		}
	}

	out := image.NewGray(g.Rect)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(th) - 0.5
		ty0 := int(floor(fy))
		ay := fy - float64(ty0)
		ty1 := min(ty0+1, tilesY-1)
		ty0 = max(ty0, 0)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tw) - 0.5
			tx0 := int(floor(fx))
			ax := fx - float64(tx0)
			tx1 := min(tx0+1, tilesX-1)
			tx0 = max(tx0, 0)

			v := g.Pix[y*g.Stride+x]
			top := (1-ax)*float64(luts[ty0*tilesX+tx0][v]) + ax*float64(luts[ty0*tilesX+tx1][v])
			bot := (1-ax)*float64(luts[ty1*tilesX+tx0][v]) + ax*float64(luts[ty1*tilesX+tx1][v])
			out.Pix[y*out.Stride+x] = clamp8((1-ay)*top + ay*bot)
		}
	}
	return out
}

func tileLUT(g *image.Gray, x0, y0, x1, y1 int, clip float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[g.Pix[y*g.Stride+x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)
	var lut [256]uint8
	if area == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	if clip > 0 {
		limit := int(clip * float64(area) / 256)
		if limit < 1 {
			limit = 1
		}
		excess := 0
		for i, c := range hist {
			if c > limit {
				excess += c - limit
				hist[i] = limit
			}
		}
		share, rest := excess/256, excess%256
		for i := range hist {
			hist[i] += share
			if i < rest {
				hist[i]++
			}
		}
	}

	scale := 255.0 / float64(area)
	sum := 0
	for i, c := range hist {
		sum += c
		lut[i] = clamp8(float64(sum) * scale)
	}
	return lut
}

func floor(v float64) float64 {
	i := float64(int(v))
	if v < i {
		return i - 1
	}
	return i
}
