// Package merge はローカル保留分とリモート確定分を1つのビューに統合する純関数群。
// I/Oは持たない。表示用も送信用も必ず同じ関数を通す。
package merge

import "github.com/mariuscautis/menu-hub-sub000/internal/domain/model"

// Consolidate はproduct_idごとに数量を合算して1行にまとめる。
// 結果には同じproduct_idが2回現れない。順序は初出順を保つ。
func Consolidate(items []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, 0, len(items))
	idx := make(map[int64]int, len(items))

	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			out[i].ExistingQuantity += it.ExistingQuantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

// ForDisplay は「今このテーブルに載っているもの」の正とするビューを作る。
// リモート確定分に増分を加算し、未送信注文を重ねる。上書きはせず常に加算。
// ExistingQuantityはリモート確定分と未送信注文（ローカル確定済み）の数量。
// 増分（updateDeltas）はまだ注文に編入されていないので下限には入れない。
func ForDisplay(remote []model.LineItem, updateDeltas []model.LineItem, pendingOrders []model.LineItem) []model.LineItem {
	merged := make([]model.LineItem, 0, len(remote)+len(updateDeltas)+len(pendingOrders))

	for _, it := range remote {
		it.ExistingQuantity = it.Quantity
		merged = append(merged, it)
	}
	for _, it := range updateDeltas {
		it.ExistingQuantity = 0
		merged = append(merged, it)
	}
	for _, it := range pendingOrders {
		it.ExistingQuantity = it.Quantity
		merged = append(merged, it)
	}

	return Consolidate(merged)
}

// DeltaSince は既知の状態に対する「増えた分」だけを返す。
// 減った・消えた行は差分を作らない（オフラインの減算は呼び出し側で拒否する）。
func DeltaSince(original []model.LineItem, requested []model.LineItem) []model.LineItem {
	base := make(map[int64]int64, len(original))
	for _, it := range Consolidate(original) {
		base[it.ProductID] = it.Quantity
	}

	delta := make([]model.LineItem, 0, len(requested))
	for _, it := range Consolidate(requested) {
		inc := it.Quantity - base[it.ProductID]
		if inc <= 0 {
			continue
		}
		delta = append(delta, model.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  inc,
		})
	}
	return delta
}

// HasDecrease は既知の数量より減らす（行を消す含む）要求かどうか。
func HasDecrease(original []model.LineItem, requested []model.LineItem) bool {
	req := make(map[int64]int64, len(requested))
	for _, it := range Consolidate(requested) {
		req[it.ProductID] = it.Quantity
	}

	for _, it := range Consolidate(original) {
		if req[it.ProductID] < it.Quantity {
			return true
		}
	}
	return false
}

// Total は合計金額（ペンス）。
func Total(items []model.LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPrice * it.Quantity
	}
	return total
}
