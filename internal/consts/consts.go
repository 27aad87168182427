package consts

// Squared relative tolerance of the on-segment test (1e-6 of segment length).
const SEGTOL2 = 1.0e-12

// Quantity indices into the per-object overlap matrix table.
const (
	QINDEX_POWER = iota
	QINDEX_XFORCE
	QINDEX_YFORCE
	QINDEX_ZFORCE
	MAXQUANTITIES
)

// Overlap integral indices as returned by Object.Overlaps.
const (
	OVERLAP_OVERLAP = iota
	OVERLAP_CROSS
	OVERLAP_XBULLET
	OVERLAP_XNABLANABLA
	OVERLAP_XTIMESNABLA
	OVERLAP_YBULLET
	OVERLAP_YNABLANABLA
	OVERLAP_YTIMESNABLA
	OVERLAP_ZBULLET
	OVERLAP_ZNABLANABLA
	OVERLAP_ZTIMESNABLA
	NUMOVERLAPS
)
