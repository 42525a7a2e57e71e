package vision

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// noiseImage returns a grayscale image of random 8x8 blocks, which gives
// ORB plenty of stable corners.
func noiseImage(t *testing.T, size int, seed int64) gocv.Mat {
	t.Helper()
	small := size / 8
	data := make([]byte, small*small)
	rand.New(rand.NewSource(seed)).Read(data)

	src, err := gocv.NewMatFromBytes(small, small, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	defer src.Close()

	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(size, size), 0, 0, gocv.InterpolationNearestNeighbor)
	return dst
}

// solidBGR returns a rows x cols BGR image filled with one color.
func solidBGR(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// fill paints rect of img with a BGR color.
func fill(img gocv.Mat, rect image.Rectangle, b, g, r float64) {
	roi := img.Region(rect)
	defer roi.Close()
	roi.SetTo(gocv.NewScalar(b, g, r, 0))
}
