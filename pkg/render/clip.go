package render

// MaxClipVertices is the capacity of a clipped polygon. Clipping a triangle
// against seven half-spaces yields at most ten vertices.
const MaxClipVertices = 16

const numClipDistances = 7

// ClipTriangle clips a clip-space triangle against the view volume
// (-w <= x, y, z <= w) and the user clip plane, writing the resulting convex
// polygon to out. It returns the number of vertices written, which is 0 when
// the triangle is entirely outside.
//
// Vertices are tracked as barycentric weights of the input triangle while
// clipping, so position and varyings are only reconstructed once at the end.
func ClipTriangle(v *[3]ShadedVertex, out *[MaxClipVertices]TriVertex) int {
	// dist[p][k]: distance of input vertex k to half-space p.
	var dist [numClipDistances][3]float32
	needsClipping := false
	for k := range 3 {
		vk := &v[k]
		dist[0][k] = vk.X + vk.W
		dist[1][k] = vk.W - vk.X
		dist[2][k] = vk.Y + vk.W
		dist[3][k] = vk.W - vk.Y
		dist[4][k] = vk.Z + vk.W
		dist[5][k] = vk.W - vk.Z
		dist[6][k] = vk.ClipDistance0
		for p := range numClipDistances {
			needsClipping = needsClipping || dist[p][k] < 0
		}
	}

	if !needsClipping {
		for k := range 3 {
			out[k] = v[k].TriVertex
		}
		return 3
	}

	var bufA, bufB [MaxClipVertices][3]float32
	input, output := &bufA, &bufB
	input[0] = [3]float32{1, 0, 0}
	input[1] = [3]float32{0, 1, 0}
	input[2] = [3]float32{0, 0, 1}
	inputVerts := 3

	for p := range numClipDistances {
		d := &dist[p]
		outputVerts := 0
		for i := range inputVerts {
			j := (i + 1) % inputVerts
			wi, wj := &input[i], &input[j]
			d1 := d[0]*wi[0] + d[1]*wi[1] + d[2]*wi[2]
			d2 := d[0]*wj[0] + d[1]*wj[1] + d[2]*wj[2]

			if (d1 < 0 && d2 < 0) || outputVerts+1 >= MaxClipVertices {
				continue
			}

			var t1, t2 float32 = 0, 1
			if d1 < 0 {
				t1 = max(-d1/(d2-d1), 0)
			}
			if d2 < 0 {
				t2 = min(1+d2/(d1-d2), 1)
			}

			output[outputVerts] = lerpWeights(wi, wj, t1)
			outputVerts++
			if t2 != 1 && t2 > t1 {
				output[outputVerts] = lerpWeights(wi, wj, t2)
				outputVerts++
			}
		}
		input, output = output, input
		inputVerts = outputVerts
		if inputVerts == 0 {
			break
		}
	}

	for i := range inputVerts {
		var r TriVertex
		for k := range 3 {
			w := input[i][k]
			r.X += v[k].X * w
			r.Y += v[k].Y * w
			r.Z += v[k].Z * w
			r.W += v[k].W * w
			for n := range NumVaryings {
				r.Varying[n] += v[k].Varying[n] * w
			}
		}
		out[i] = r
	}
	return inputVerts
}

func lerpWeights(a, b *[3]float32, t float32) [3]float32 {
	return [3]float32{
		a[0]*(1-t) + b[0]*t,
		a[1]*(1-t) + b[1]*t,
		a[2]*(1-t) + b[2]*t,
	}
}
