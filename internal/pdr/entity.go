package pdr

import (
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/rs/zerolog/log"
)

// EntityNode is one node of the entity-association tree (spec §3
// EntityNode, §4.3 "Entity-association records").
type EntityNode struct {
	Key      EntityKey
	Name     string
	Children []*EntityNode
}

// BuildEntityTree derives the acyclic entity-association tree from the
// device's parsed association records (spec §4.3, §8 property 8).
//
// The root is the association whose container entity's own ContainerID
// equals deviceContainerID. Remaining associations are attached by
// repeated BFS passes: a pass attaches every association whose container
// key is already in the tree; passes repeat until one makes no
// attachments. A contained entity already present anywhere in the tree —
// whether as a literal duplicate under the same parent or as a back-edge
// from a descendant — is a cycle and its edge is discarded, not the
// whole association.
func BuildEntityTree(deviceContainerID uint16, associations []EntityAssociationRecord) (*EntityNode, error) {
	var rootAssoc *EntityAssociationRecord
	for i := range associations {
		if associations[i].Container.ContainerID == deviceContainerID {
			rootAssoc = &associations[i]
			break
		}
	}
	if rootAssoc == nil {
		return nil, pldmerr.ErrMissingAssociation
	}

	root := &EntityNode{Key: rootAssoc.Container}
	attached := map[EntityKey]*EntityNode{rootAssoc.Container: root}

	remaining := make([]*EntityAssociationRecord, 0, len(associations))
	for i := range associations {
		remaining = append(remaining, &associations[i])
	}

	for {
		attachedThisPass := 0
		next := make([]*EntityAssociationRecord, 0, len(remaining))
		for _, assoc := range remaining {
			parent, ok := attached[assoc.Container]
			if !ok {
				next = append(next, assoc)
				continue
			}
			for _, childKey := range assoc.Contained {
				if _, cycle := attached[childKey]; cycle {
					log.Warn().
						Interface("parent", assoc.Container).
						Interface("child", childKey).
						Msg("pdr: discarding cyclic entity-association edge")
					continue
				}
				child := &EntityNode{Key: childKey}
				parent.Children = append(parent.Children, child)
				attached[childKey] = child
			}
			attachedThisPass++
		}
		remaining = next
		if attachedThisPass == 0 {
			break
		}
	}

	for _, orphan := range remaining {
		log.Warn().Interface("container", orphan.Container).Msg("pdr: dropping orphaned entity-association record")
	}

	return root, nil
}

// FindNode locates the node for key by DFS from root, or nil if absent.
func FindNode(root *EntityNode, key EntityKey) *EntityNode {
	if root == nil {
		return nil
	}
	if root.Key == key {
		return root
	}
	for _, child := range root.Children {
		if found := FindNode(child, key); found != nil {
			return found
		}
	}
	return nil
}
