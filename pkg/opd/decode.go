package opd

import "runtime"

// DecodeOptions represents the decoding options passed to Decode
type DecodeOptions struct {
	// Signedness forces the sample interpretation for every container
	//
	// the default is SignAuto - resolved from Interpretations, then signed
	Signedness Signedness
	// Interpretations declares the sample interpretation per container type
	// or directive version, e.g. {"1.0": Unsigned} for an older encoder revision
	//
	// a directive.version match is checked before a type match
	Interpretations map[string]Signedness
	// Workers bounds the number of frames decoded concurrently
	//
	// zero means runtime.GOMAXPROCS(0), one decodes sequentially
	Workers int
}

func (o *DecodeOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ResolveFormat returns the sample format a container with this header decodes to
func ResolveFormat(h Header, options *DecodeOptions) SampleFormat {
	sign := Signed
	if options != nil {
		if options.Signedness != SignAuto {
			sign = options.Signedness
		} else if s, ok := options.Interpretations[h.Directive.Version]; ok && s != SignAuto {
			sign = s
		} else if s, ok := options.Interpretations[h.Type]; ok && s != SignAuto {
			sign = s
		}
	}
	return SampleFormat{Bits: h.Directive.SampleBits(), Signed: sign == Signed}
}

// Container represents the decoded contents of an OPD file
type Container struct {
	Header    Header
	Centroids []Centroid
	Frames    Frames
	plan      *Plan
}

// Count returns the number of centroids declared by the header
func (c *Container) Count() int {
	return c.Header.Directive.Count()
}

// Plan returns the frame layout computed while decoding
func (c *Container) Plan() *Plan {
	return c.plan
}

// Decode decodes a complete, decompressed OPD container held in buf.
//
// if options is nil, default options are used
//
// It returns the container and any bytes left unconsumed (only possible when
// the frame table is empty). On error no container is returned
func Decode(buf []byte, options *DecodeOptions) (*Container, []byte, error) {
	if options == nil {
		options = &DecodeOptions{}
	}
	header, rest, err := DecodeHeader(buf)
	if err != nil {
		return nil, nil, err
	}
	pos := len(buf) - len(rest)
	centroids, payload, err := DecodeCentroids(rest, header.Directive.Count())
	if err != nil {
		return nil, nil, rebase(err, pos)
	}
	pos += len(rest) - len(payload)
	plan, err := NewPlan(header.Directive, len(payload))
	if err != nil {
		return nil, nil, rebase(err, pos)
	}
	frames, err := DecodeFrames(payload, plan, ResolveFormat(header, options), options.workers())
	if err != nil {
		return nil, nil, rebase(err, pos)
	}
	consumed := 0
	if n := len(plan.Ranges); n > 0 {
		_, consumed = plan.Ranges[n-1].ByteRange(plan.Precision)
	}
	return &Container{
		Header:    header,
		Centroids: centroids,
		Frames:    frames,
		plan:      plan,
	}, payload[consumed:], nil
}
