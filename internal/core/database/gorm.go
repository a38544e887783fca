package database

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"

	"carbuy-api/internal/domain"
)

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	PrepareStmt        bool
	// LogWriter SQL 日志输出；nil 时用标准库 log
	LogWriter io.Writer
}

func NewGorm(o Opts) (*gorm.DB, error) {
	out := o.LogWriter
	if out == nil {
		out = log.Writer()
	}
	sqlLog := log.New(out, "", 0)

	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		dsn := normalizeMySQLDSN(o.DSN, o.Username, o.Password)
		sqlLog.Println("[db] final mysql dsn =", maskDSN(dsn))
		dial = mysql.Open(dsn)
	case "sqlite":
		// 本地开发 / 测试；外键需显式打开
		dial = sqlite.Open(withSQLiteFK(o.DSN))
	default:
		return nil, ErrUnsupportedDriver
	}
	lvl := logger.Warn
	switch o.LogLevel {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.New(sqlLog, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	db = db.
		Session(&gorm.Session{
			PrepareStmt:            o.PrepareStmt, // 预编译缓存，提高 QPS
			CreateBatchSize:        200,           // 批量写
			SkipDefaultTransaction: true,          // 只在需要时手动开 Tx
		})
	return db, nil
}

// Migrate 按依赖顺序建表：users → cars → favourite_cars
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.User{}, &domain.Listing{}, &domain.Favourite{}); err != nil {
		return err
	}
	if ddl := emailCollationDDL(db.Dialector.Name()); ddl != "" {
		return db.Exec(ddl).Error
	}
	return nil
}

// emailCollationDDL mysql 默认排序规则不区分大小写，邮箱唯一索引改为按字节比较；
// postgres 与 sqlite 的等值比较本来就区分大小写
func emailCollationDDL(dialect string) string {
	if dialect != "mysql" {
		return ""
	}
	return "ALTER TABLE users MODIFY email varchar(200) NOT NULL COLLATE utf8mb4_bin"
}

func maskDSN(dsn string) string {
	masked := dsn
	if at := strings.Index(masked, "@"); at > 0 {
		if colon := strings.LastIndex(masked[:at], ":"); colon > 0 {
			masked = masked[:colon+1] + "****" + masked[at:]
		}
	}
	return masked
}

func withSQLiteFK(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// normalizeMySQLDSN mysql:// 或 jdbc:mysql:// URL 转成 go-sql-driver 的 user:pass@tcp(host)/db?...；
// 已是驱动格式的原样返回
func normalizeMySQLDSN(input, userOverride, passOverride string) string {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return strings.TrimSpace(input)
	}
	u, err := url.Parse(in)
	if err != nil {
		return in // 交给驱动报错
	}

	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	q := u.Query()
	user = firstNonEmpty(userOverride, pop(q, "user"), user)
	pass = firstNonEmpty(passOverride, pop(q, "password"), pass)
	adaptJDBCParams(q)

	cred := user
	if pass != "" {
		cred += ":" + pass
	}
	if cred != "" {
		cred += "@"
	}
	dsn := fmt.Sprintf("%stcp(%s)/%s", cred, u.Host, strings.TrimPrefix(u.Path, "/"))
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn
}

// JDBC 参数 → go-sql-driver 参数
var jdbcRenames = map[string]string{
	"characterEncoding": "charset",
	"serverTimezone":    "loc",
}

// 驱动不认识的 JDBC 专用参数
var jdbcDropped = []string{"useUnicode", "zeroDateTimeBehavior"}

func adaptJDBCParams(q url.Values) {
	for from, to := range jdbcRenames {
		if v := pop(q, from); v != "" && q.Get(to) == "" {
			q.Set(to, v)
		}
	}
	for _, k := range jdbcDropped {
		q.Del(k)
	}
	if v := strings.ToLower(pop(q, "useSSL")); v != "" {
		switch v {
		case "true", "1":
			q.Set("tls", "true")
		case "skip-verify", "preferred":
			q.Set("tls", v)
		default:
			q.Set("tls", "false")
		}
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "true")
	}
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
}

func pop(q url.Values, key string) string {
	v := q.Get(key)
	q.Del(key)
	return v
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

var ErrUnsupportedDriver = gorm.ErrInvalidDB
