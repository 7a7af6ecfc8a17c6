package model

// RemoteOrder はリモート側で確定している注文のスナップショット。
// DBには保存しない（表示・差分計算用の読み取り専用）。
type RemoteOrder struct {
	ID      int64      `json:"id"`
	TableID int64      `json:"table_id"`
	Items   []LineItem `json:"items"`
	Total   int64      `json:"total"`
	Paid    bool       `json:"paid"`
}
