package statepaths

import (
	"path/filepath"

	"github.com/IlliaSobcko/AIBI-Project/internal/pathutil"
	"github.com/spf13/viper"
)

const (
	reportsDirName          = "reports"
	knowledgeFilename       = "successful_replies.json"
	instructionsFilename    = "instructions.md"
	dynamicFilename         = "dynamic_instructions.md"
	instructionsBackupsName = "instruction_backups"
	auditFilename           = "decisions.jsonl"
	chatLogDirName          = "chatlog"
	dbFilename              = "aibi.sqlite"
)

func StateDir() string {
	return pathutil.ResolveStateDir(viper.GetString("file_state_dir"))
}

func ReportsDir() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("reports.dir"), reportsDirName)
}

func KnowledgePath() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("knowledge.path"), knowledgeFilename)
}

func InstructionsPath() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("instructions.path"), instructionsFilename)
}

func DynamicInstructionsPath() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("instructions.dynamic_path"), dynamicFilename)
}

func InstructionBackupsDir() string {
	return filepath.Join(StateDir(), instructionsBackupsName)
}

func AuditPath() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("audit.path"), auditFilename)
}

func ChatLogDir() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("chatlog.dir"), chatLogDirName)
}

func BusinessDataPath() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("business_data.path"), "business_data.txt")
}

func DatabasePath() string {
	return pathutil.ResolveStateChild(viper.GetString("file_state_dir"), viper.GetString("db.dsn"), dbFilename)
}
