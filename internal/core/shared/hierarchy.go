package shared

import "context"

// ParentFunc は id の親 ID を返します。親がない場合は nil です。
type ParentFunc func(ctx context.Context, id string) (*string, error)

// ReachesAncestor は start から親をたどり target に到達するか、既存の循環に入るかを判定します。
// start 自身も比較対象に含みます。
func ReachesAncestor(ctx context.Context, target, start string, parentOf ParentFunc) (bool, error) {
	visited := make(map[string]struct{})
	current := start
	for current != "" {
		if current == target {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			return true, nil
		}
		visited[current] = struct{}{}

		parent, err := parentOf(ctx, current)
		if err != nil {
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		current = *parent
	}
	return false, nil
}
