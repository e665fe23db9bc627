package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

func withAttributes(t *testing.T) *Snapshot {
	t.Helper()
	s := testTree(t)
	add := func(id, classID, name string, mapping domain.MappingKind, typ string) {
		a := domain.NewAttribute(name, mapping, typ)
		a.ID = id
		a.ClassID = classID
		s.AddAttribute(a)
	}
	add("a-name", "root", domain.AttributeName, domain.MappingPrimitive, domain.TypeString)
	add("a-created", "root", domain.AttributeCreationDate, domain.MappingDate, domain.TypeDate)
	add("a-vendor", "gce", "vendor", domain.MappingManyToOne, "Vendor")
	add("a-ports", "router", "ports", domain.MappingPrimitive, domain.TypeInteger)
	return s
}

func TestAttributesInheritedFirst(t *testing.T) {
	s := withAttributes(t)
	router := mustClass(t, s, "Router")

	var got []string
	for _, a := range s.Attributes(router) {
		got = append(got, a.Name)
	}
	assert.Equal(t, []string{"name", "creationDate", "vendor", "ports"}, got)
	assert.Len(t, s.OwnAttributes(router), 1)
}

func TestAttributeLookup(t *testing.T) {
	s := withAttributes(t)
	router := mustClass(t, s, "Router")

	a, err := s.Attribute(router, "vendor")
	require.NoError(t, err)
	assert.Equal(t, "gce", a.ClassID)

	a, err = s.Attribute(router, "a-ports")
	require.NoError(t, err)
	assert.Equal(t, "ports", a.Name)

	_, err = s.Attribute(mustClass(t, s, "Switch"), "ports")
	assert.True(t, apperror.IsMetadataNotFound(err), "siblings do not share attributes")
}

func TestNameTaken(t *testing.T) {
	s := withAttributes(t)
	gce := mustClass(t, s, "GenericCommunicationsElement")

	assert.True(t, s.NameTaken(gce, "name", ""), "ancestor")
	assert.True(t, s.NameTaken(gce, "vendor", ""), "own")
	assert.True(t, s.NameTaken(gce, "ports", ""), "descendant")
	assert.False(t, s.NameTaken(gce, "ports", "a-ports"), "self is ignored")
	assert.False(t, s.NameTaken(mustClass(t, s, "Rack"), "ports", ""), "other branch")
}

func TestCollisionsAndReferences(t *testing.T) {
	s := withAttributes(t)
	rack := mustClass(t, s, "Rack")
	a := domain.NewAttribute("ports", domain.MappingPrimitive, domain.TypeInteger)
	a.ID = "a-rack-ports"
	a.ClassID = rack.ID
	s.AddAttribute(a)

	assert.Equal(t, []string{"ports"}, s.Collisions(rack, mustClass(t, s, "Router")))
	assert.Empty(t, s.Collisions(rack, mustClass(t, s, "GenericBoard")))

	refs := s.ReferencedBy(mustClass(t, s, "Vendor"))
	require.Len(t, refs, 1)
	assert.Equal(t, "vendor", refs[0].Name)
}

func TestReplaceAndRemoveAttribute(t *testing.T) {
	s := withAttributes(t)
	router := mustClass(t, s, "Router")
	ports, err := s.Attribute(router, "ports")
	require.NoError(t, err)

	renamed := ports.Clone()
	renamed.Name = "portCount"
	s.ReplaceAttribute(renamed)
	_, err = s.Attribute(router, "portCount")
	assert.NoError(t, err)

	s.RemoveAttribute(renamed)
	assert.Empty(t, s.OwnAttributes(router))
}
