package imaging

// Binary morphology with rectangular structuring elements.
//
// The element is anchored at (kw/2, kh/2). Rectangular elements are
// separable, so each operation runs a horizontal then a vertical window pass
// using running counts. For erosion, pixels outside the mask count as
// foreground; for dilation they count as background, so neither operation
// grows or shrinks shapes at the image border.

// Erode applies iterations erosions with a kw x kh rectangle.
func Erode(m *Mask, kw, kh, iterations int) *Mask {
	out := m.Clone()
	for i := 0; i < iterations; i++ {
		out = windowPass(out, kw, kh, true)
	}
	return out
}

// Dilate applies iterations dilations with a kw x kh rectangle.
func Dilate(m *Mask, kw, kh, iterations int) *Mask {
	out := m.Clone()
	for i := 0; i < iterations; i++ {
		out = windowPass(out, kw, kh, false)
	}
	return out
}

// Open erodes then dilates, each iterations times.
func Open(m *Mask, kw, kh, iterations int) *Mask {
	return Dilate(Erode(m, kw, kh, iterations), kw, kh, iterations)
}

// Close dilates then erodes, each iterations times.
func Close(m *Mask, kw, kh, iterations int) *Mask {
	return Erode(Dilate(m, kw, kh, iterations), kw, kh, iterations)
}

func windowPass(m *Mask, kw, kh int, erode bool) *Mask {
	if kw <= 1 && kh <= 1 {
		return m.Clone()
	}
	tmp := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		dst := tmp.Pix[y*m.Width : (y+1)*m.Width]
		window1D(row, dst, 1, m.Width, kw, erode)
	}
	out := NewMask(m.Width, m.Height)
	for x := 0; x < m.Width; x++ {
		window1D(tmp.Pix[x:], out.Pix[x:], m.Width, m.Height, kh, erode)
	}
	return out
}

// window1D runs a 1-D min (erode) or max (dilate) filter of size k over n
// samples spaced stride apart.
func window1D(src, dst []bool, stride, n, k int, erode bool) {
	if k <= 1 {
		for i := 0; i < n; i++ {
			dst[i*stride] = src[i*stride]
		}
		return
	}

	anchor := k / 2
	lo := -anchor
	hi := k - 1 - anchor

	// prefix[i] = number of "hits" in src[0:i]; a hit is a background pixel
	// when eroding and a foreground pixel when dilating.
	prefix := make([]int, n+1)
	for i := 0; i < n; i++ {
		hit := src[i*stride] != erode
		prefix[i+1] = prefix[i]
		if hit {
			prefix[i+1]++
		}
	}

	for i := 0; i < n; i++ {
		a := max(i+lo, 0)
		b := min(i+hi, n-1)
		hits := prefix[b+1] - prefix[a]
		if erode {
			dst[i*stride] = hits == 0
		} else {
			dst[i*stride] = hits > 0
		}
	}
}
