package model

// DataPayload is the integrator's replication request body: a target table
// plus the records to apply. "records" is canonical; "data" is accepted as
// an alias for older integrator builds.
type DataPayload struct {
	TableName string                   `json:"table_name"`
	Records   []map[string]interface{} `json:"records"`
	Data      []map[string]interface{} `json:"data,omitempty"`
}

// Rows returns the record set, honoring the legacy "data" alias when
// "records" is absent.
func (p DataPayload) Rows() []map[string]interface{} {
	if len(p.Records) > 0 {
		return p.Records
	}
	return p.Data
}

// ApplyReport summarizes one replication apply: how many records landed and
// what the replicator did to the target table to make that possible.
type ApplyReport struct {
	TenantID     string `json:"tenant_id"`
	TableName    string `json:"table_name"`
	Applied      int    `json:"records_applied"`
	TableCreated bool   `json:"table_created"`
	ColumnsAdded int    `json:"columns_added"`
	Message      string `json:"message"`
}

// SQLRequest is the raw SQL execution request body.
type SQLRequest struct {
	SQL string `json:"sql"`
}
