package database

// Table 持久化模型需要声明所在集合
type Table interface {
	GetTableName() string
}
