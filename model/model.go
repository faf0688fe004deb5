package model

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fullpos/poscloud/params"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var snowflakeNode *snowflake.Node

var Models = []interface{}{
	&Company{}, &User{}, &Terminal{},
	&OverrideRequest{}, &OverrideToken{}, &AuditLog{},
}

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(params.SnowflakeNodeID)
	if err != nil {
		panic(err)
	}
}

// GenerateCloudID returns a short unique identifier handed to POS terminals
// so they can address a company without knowing its tax id.
func GenerateCloudID() string {
	return snowflakeNode.Generate().Base58()
}

func NamingStrategy(tablePrefix string) schema.NamingStrategy {
	return schema.NamingStrategy{
		TablePrefix:   tablePrefix,
		SingularTable: true,
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}
