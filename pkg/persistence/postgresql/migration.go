package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Versioned, account/organization-scoped workflow templates. The
			-- composite primary key doubles as the optimistic-concurrency
			-- anchor: every mutation is conditioned on it.
			CREATE TABLE templates (
				account_id VARCHAR(255) NOT NULL,
				organization_id VARCHAR(255),
				template_id VARCHAR(255) NOT NULL,
				version VARCHAR(100) NOT NULL,
				label VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published')),
				definition JSONB NOT NULL DEFAULT '{"steps": []}',
				tags TEXT[] NOT NULL DEFAULT '{}',
				linked_form_id VARCHAR(255),
				workflow_type VARCHAR(100),
				diagram TEXT,
				created_by VARCHAR(255),
				updated_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (account_id, template_id, version)
			);

			CREATE INDEX idx_templates_account ON templates(account_id);
			CREATE INDEX idx_templates_organization ON templates(account_id, organization_id);
			CREATE INDEX idx_templates_status ON templates(status);
			CREATE INDEX idx_templates_workflow_type ON templates(workflow_type);
			CREATE INDEX idx_templates_created_at ON templates(created_at);
			CREATE INDEX idx_templates_tags ON templates USING GIN(tags);
		`,
	}
}
