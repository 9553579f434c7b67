// Package database 持久化每首曲目的用户偏好。
package database

// PreferenceStore 定义曲目偏好存储接口。
// 编码名称为空或 "auto" 表示自动探测。
type PreferenceStore interface {
	EncodingFor(trackPath string) (string, error) // 查询曲目的歌词编码偏好
	SetEncoding(trackPath, encoding string) error // 记录曲目的歌词编码偏好
	Close() error                                 // 关闭数据库连接
}
