package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_instances (
				id VARCHAR(64) PRIMARY KEY,
				workflow_type VARCHAR(255) NOT NULL,
				state VARCHAR(255) NOT NULL,
				context JSONB NOT NULL DEFAULT '{}',
				last_update TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflow_instances_type ON workflow_instances(workflow_type);
		`,
	}
}
