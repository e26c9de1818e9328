package pdr

import "fmt"

// assignObjectPaths walks the tree from root, recording
// /.../system/<tid>/<root_name>/<child_name>/... for every reachable node
// (spec §4.3 "Object-path derivation", §6).
func (r *Repository) assignObjectPaths(node *EntityNode, basePath, deviceName string) {
	if node == nil {
		return
	}
	node.Name = deviceName
	rootPath := fmt.Sprintf("%s/%d/%s", basePath, r.TID, deviceName)
	r.walkAssign(node, rootPath)
}

func (r *Repository) walkAssign(node *EntityNode, path string) {
	r.objectPaths[node.Key] = path
	if node.Name == "" {
		node.Name = r.nodeName(node)
	}
	for _, child := range node.Children {
		name := r.nodeName(child)
		r.walkAssign(child, path+"/"+name)
	}
}

// nodeName picks the auxiliary name for an entity if one resolved, else
// the synthetic <type>_<instance>_<container> fallback (spec §4.3).
func (r *Repository) nodeName(node *EntityNode) string {
	if names, ok := r.entityAuxNames[node.Key]; ok && len(names) > 0 {
		return names[0]
	}
	return fmt.Sprintf("%d_%d_%d", node.Key.EntityType, node.Key.EntityInstance, node.Key.ContainerID)
}
