package models

// DbtSources is the content of a dbt sources.yml file.
type DbtSources struct {
	Version int         `yaml:"version" json:"version"`
	Sources []DbtSource `yaml:"sources" json:"sources"`
}

// DBT源定义
type DbtSource struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description" json:"description"`
	Schema      string                 `yaml:"schema,omitempty" json:"schema,omitempty"`
	Meta        map[string]interface{} `yaml:"meta,omitempty" json:"meta,omitempty"`
	Tables      []SourceTable          `yaml:"tables" json:"tables"`
}

// 源表定义
type SourceTable struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description" json:"description"`
	External    *ExternalTable         `yaml:"external,omitempty" json:"external,omitempty"`
	Columns     []ModelColumn          `yaml:"columns" json:"columns"`
	Meta        map[string]interface{} `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// ExternalTable locates a table stored as files, in the dbt-external-tables layout.
type ExternalTable struct {
	Location   string              `yaml:"location" json:"location"`
	FileFormat string              `yaml:"file_format" json:"fileFormat"`
	Partitions []ExternalPartition `yaml:"partitions,omitempty" json:"partitions,omitempty"`
}

type ExternalPartition struct {
	Name     string `yaml:"name" json:"name"`
	DataType string `yaml:"data_type" json:"dataType"`
}

// 列定义
type ModelColumn struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	DataType    string   `yaml:"data_type" json:"dataType"`
	Tests       []string `yaml:"tests,omitempty" json:"tests,omitempty"`
}
