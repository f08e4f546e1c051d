package enumkey

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// The trigger set keeps enumkey_versions moving on every enumkeys write, so
// registry staleness checks stay a single scalar read. The counter row is
// created on first use when the seed migration has not run.

const sqliteTriggerTemplate = `
CREATE TRIGGER IF NOT EXISTS trg_enumkeys_version_%s
AFTER %s ON enumkeys
BEGIN
    UPDATE enumkey_versions SET version = version + 1;
    INSERT INTO enumkey_versions (version)
    SELECT 1 WHERE NOT EXISTS (SELECT 1 FROM enumkey_versions);
END;`

const postgresBumpFunction = `
CREATE OR REPLACE FUNCTION enumkeys_bump_version() RETURNS trigger AS $$
BEGIN
    UPDATE enumkey_versions SET version = version + 1;
    IF NOT FOUND THEN
        INSERT INTO enumkey_versions (version) VALUES (1);
    END IF;
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;`

const postgresDropTrigger = `DROP TRIGGER IF EXISTS trg_enumkeys_version ON enumkeys;`

const postgresCreateTrigger = `
CREATE TRIGGER trg_enumkeys_version
AFTER INSERT OR UPDATE OR DELETE ON enumkeys
FOR EACH STATEMENT EXECUTE FUNCTION enumkeys_bump_version();`

var triggerEvents = []string{"INSERT", "UPDATE", "DELETE"}

// InstallVersionTriggers creates the mutation triggers on enumkeys for the
// connected dialect. Installation is idempotent.
func InstallVersionTriggers(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite":
		for _, event := range triggerEvents {
			ddl := fmt.Sprintf(sqliteTriggerTemplate, strings.ToLower(event), event)
			if err := db.Exec(ddl).Error; err != nil {
				return fmt.Errorf("install enumkeys %s trigger: %w", strings.ToLower(event), err)
			}
		}
		return nil
	case "postgres":
		for _, ddl := range []string{postgresBumpFunction, postgresDropTrigger, postgresCreateTrigger} {
			if err := db.Exec(ddl).Error; err != nil {
				return fmt.Errorf("install enumkeys version trigger: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: no version triggers for dialect %q", ErrRegistry, db.Dialector.Name())
	}
}

// DropVersionTriggers removes the mutation triggers for the connected
// dialect, leaving the counter row in place.
func DropVersionTriggers(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite":
		for _, event := range triggerEvents {
			ddl := fmt.Sprintf("DROP TRIGGER IF EXISTS trg_enumkeys_version_%s;", strings.ToLower(event))
			if err := db.Exec(ddl).Error; err != nil {
				return fmt.Errorf("drop enumkeys %s trigger: %w", strings.ToLower(event), err)
			}
		}
		return nil
	case "postgres":
		if err := db.Exec(postgresDropTrigger).Error; err != nil {
			return fmt.Errorf("drop enumkeys version trigger: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: no version triggers for dialect %q", ErrRegistry, db.Dialector.Name())
	}
}
