package uid

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

var (
	node *snowflake.Node
	once sync.Once
)

func Init(machineID int64) {
	once.Do(func() {
		var err error
		node, err = snowflake.NewNode(machineID)
		if err != nil {
			log.Fatalf("failed to initialize snowflake node: %v", err)
		}
	})
}

func Generate() int64 {
	if node == nil {
		log.Fatalf("uid package not initialized")
	}
	return node.Generate().Int64()
}

// NewRef allocates an opaque content pointer. Pointers are never reused.
func NewRef() string {
	return uuid.NewString()
}

func Format(id int64) string {
	return strconv.FormatInt(id, 10)
}
