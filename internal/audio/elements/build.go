package elements

import (
	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/errors"
)

// BuildGraph instantiates every element a GraphClass declares, wires them
// per its links, and designates its external output, producing a *Graph
// ready for Prepare. This is the one place a declarative document turns
// into a live, schedulable graph; audio.Graph itself never depends on
// GraphClass or on this package.
func BuildGraph(gc *audio.GraphClass) (*audio.Graph, error) {
	g := audio.NewGraph(gc.Name, gc.ID)

	idToName := make(map[string]string, len(gc.Elements))
	for _, decl := range gc.Elements {
		element, err := CreateElement(decl)
		if err != nil {
			return nil, errors.Wrap(err).
				Category(errors.CategoryPreparation).
				Context("graph", gc.Name).
				Context("element", decl.Name).
				Build()
		}
		g.AddElement(element)
		idToName[decl.ID] = decl.Name
	}

	for _, link := range gc.Links {
		srcName, ok := idToName[link.SrcElement]
		if !ok {
			return nil, errors.Newf("graph %q: link %q references unknown source element id %q", gc.Name, link.ID, link.SrcElement).
				Category(errors.CategoryPreparation).
				Build()
		}
		dstName, ok := idToName[link.DstElement]
		if !ok {
			return nil, errors.Newf("graph %q: link %q references unknown destination element id %q", gc.Name, link.ID, link.DstElement).
				Category(errors.CategoryPreparation).
				Build()
		}
		if !g.LinkElementsByName(srcName, link.SrcPort, dstName, link.DstPort) {
			return nil, errors.Newf("graph %q: could not link %s.%s to %s.%s", gc.Name, srcName, link.SrcPort, dstName, link.DstPort).
				Category(errors.CategoryPreparation).
				Build()
		}
	}

	outputName, ok := idToName[gc.SrcElemID]
	if !ok {
		return nil, errors.Newf("graph %q: output element id %q not found", gc.Name, gc.SrcElemID).
			Category(errors.CategoryPreparation).
			Build()
	}
	if !g.LinkGraphByName(outputName, gc.SrcElemPort) {
		return nil, errors.Newf("graph %q: could not designate %s.%s as graph output", gc.Name, outputName, gc.SrcElemPort).
			Category(errors.CategoryPreparation).
			Build()
	}

	return g, nil
}
