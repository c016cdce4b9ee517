package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_automations_updated_at ON automations(updated_at);
		`,
		2: `
			CREATE TABLE automation_templates (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
