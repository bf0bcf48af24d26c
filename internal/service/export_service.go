package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/repository"
	"github.com/niosh12/ddeducation/internal/workflow"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSubmissions = errors.New("没有符合条件的提交记录")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出管理端提交列表为 Excel (.xlsx)，筛选条件与列表接口一致
//   - 付款截图不进入表格，只导出支付流水号
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSubmissions 导出提交记录为 Excel
	ExportSubmissions(ctx context.Context, query *dto.AdminListQuery) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var exportHeaders = []string{
	"Submitted At", "Class", "Full Name", "Email", "Enrollment No", "DOB",
	"Session", "Subjects", "Payment Ref", "Status", "Admin Reply", "Proof Link", "Comments",
}

// ═══════════════════════════════════════════════════════════
// ExportSubmissions 导出提交记录为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单个 Sheet "Submissions"，首行为表头，按创建时间倒序
//   - 科目以 ", " 拼接在同一单元格
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportSubmissions(ctx context.Context, query *dto.AdminListQuery) (*bytes.Buffer, string, error) {
	// 1. 查询
	filter := repository.SubmissionFilter{Query: query.Q}
	if query.Status != "" {
		st, err := workflow.ParseStatus(query.Status)
		if err != nil {
			return nil, "", err
		}
		filter.Status = st
	}
	subs, err := s.repo.Submission.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询提交列表失败", zap.Error(err))
		return nil, "", err
	}
	if len(subs) == 0 {
		return nil, "", ErrExportNoSubmissions
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Submissions"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#0048BA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1), headerStyle)
	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "B", 8)
	f.SetColWidth(sheetName, "C", "G", 22)
	f.SetColWidth(sheetName, "H", "H", 48)
	f.SetColWidth(sheetName, "I", "M", 24)

	// 3. 数据行
	for i, sub := range subs {
		row := i + 2
		values := []interface{}{
			sub.CreatedAt.Format("2006-01-02 15:04"),
			sub.Class,
			sub.FullName,
			sub.Email,
			sub.EnrollmentNumber,
			sub.DOB,
			sub.Session,
			strings.Join(sub.Subjects, ", "),
			sub.PaymentRef,
			string(sub.Status),
			sub.AdminReply,
			sub.AdminProofLink,
			sub.Comments,
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
	}

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("tma_submissions_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
