package analytics

import (
	"fmt"
	"sort"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
)

// Segment is the behavioural group of a visitor.
type Segment int

const (
	SegmentBuyer Segment = iota
	SegmentCartAbandoner
	SegmentPassiveViewer
)

func (s Segment) String() string {
	switch s {
	case SegmentBuyer:
		return "Clients"
	case SegmentCartAbandoner:
		return "Intéressés"
	case SegmentPassiveViewer:
		return "Visiteurs"
	}
	return fmt.Sprintf("segment(%d)", int(s))
}

// Description explains the segment in one phrase.
func (s Segment) Description() string {
	switch s {
	case SegmentBuyer:
		return "ont acheté"
	case SegmentCartAbandoner:
		return "panier non finalisé"
	case SegmentPassiveViewer:
		return "observation simple"
	}
	return ""
}

// Segments lists every segment in declaration order.
var Segments = []Segment{SegmentBuyer, SegmentCartAbandoner, SegmentPassiveViewer}

// ClassifySegment puts any purchaser in Buyer, then any cart user in
// CartAbandoner. Everyone else only viewed.
func ClassifySegment(purchases, addToCart int64) Segment {
	switch {
	case purchases > 0:
		return SegmentBuyer
	case addToCart > 0:
		return SegmentCartAbandoner
	default:
		return SegmentPassiveViewer
	}
}

// VisitorProfile aggregates the events of one visitor.
type VisitorProfile struct {
	VisitorID      int64
	Views          int64
	AddToCart      int64
	Purchases      int64
	UniqueProducts int
	Segment        Segment
}

// ProfileVisitors groups events by visitor. Profiles are ordered by visitor id.
func ProfileVisitors(events []dataset.Event) []VisitorProfile {
	type acc struct {
		profile VisitorProfile
		items   map[int64]struct{}
	}
	byVisitor := make(map[int64]*acc)
	for _, e := range events {
		a, ok := byVisitor[e.VisitorID]
		if !ok {
			a = &acc{profile: VisitorProfile{VisitorID: e.VisitorID}, items: make(map[int64]struct{})}
			byVisitor[e.VisitorID] = a
		}
		a.items[e.ItemID] = struct{}{}
		switch e.Type {
		case dataset.EventView:
			a.profile.Views++
		case dataset.EventAddToCart:
			a.profile.AddToCart++
		case dataset.EventTransaction:
			a.profile.Purchases++
		}
	}

	out := make([]VisitorProfile, 0, len(byVisitor))
	for _, a := range byVisitor {
		p := a.profile
		p.UniqueProducts = len(a.items)
		p.Segment = ClassifySegment(p.Purchases, p.AddToCart)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitorID < out[j].VisitorID })
	return out
}

// SegmentSummary holds the size and mean behaviour of one segment.
type SegmentSummary struct {
	Segment           Segment
	Visitors          int
	Share             float64
	AvgViews          float64
	AvgUniqueProducts float64
	AvgAddToCart      float64
	AvgPurchases      float64
}

// SummarizeSegments returns the non-empty segments, largest first. Segments of
// equal size keep their declaration order.
func SummarizeSegments(profiles []VisitorProfile) []SegmentSummary {
	sums := map[Segment]*SegmentSummary{}
	for _, p := range profiles {
		s, ok := sums[p.Segment]
		if !ok {
			s = &SegmentSummary{Segment: p.Segment}
			sums[p.Segment] = s
		}
		s.Visitors++
		s.AvgViews += float64(p.Views)
		s.AvgUniqueProducts += float64(p.UniqueProducts)
		s.AvgAddToCart += float64(p.AddToCart)
		s.AvgPurchases += float64(p.Purchases)
	}

	out := make([]SegmentSummary, 0, len(sums))
	for _, s := range sums {
		n := float64(s.Visitors)
		s.AvgViews /= n
		s.AvgUniqueProducts /= n
		s.AvgAddToCart /= n
		s.AvgPurchases /= n
		s.Share = ConversionRate(int64(s.Visitors), int64(len(profiles)))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visitors != out[j].Visitors {
			return out[i].Visitors > out[j].Visitors
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}
