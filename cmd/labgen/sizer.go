package main

// Candidate prefix lengths, smallest block first. A two-interface segment is
// always a /30 point-to-point link even though a /29 would also fit; larger
// segments take the smallest block whose usable host count covers the degree.
const (
	ptpPrefix       = 30
	firstLANPrefix  = 29
	defaultMaxBlock = 24
)

// prefixForDegree maps a segment's interface count to the smallest
// sufficient prefix length. maxBlock is the largest block the policy permits
// (fewest prefix bits, default /24).
func prefixForDegree(segment string, degree, maxBlock int) (int, error) {
	if maxBlock <= 0 {
		maxBlock = defaultMaxBlock
	}
	if degree <= 2 {
		return ptpPrefix, nil
	}
	for bits := firstLANPrefix; bits >= maxBlock; bits-- {
		if usableHosts(bits) >= degree {
			return bits, nil
		}
	}
	return 0, &CapacityError{Segment: segment, Degree: degree, MaxBlock: maxBlock}
}
