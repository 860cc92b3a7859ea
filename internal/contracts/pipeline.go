package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그와 RunResult에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S1 → S0 → S2 → S4 → S5
//   Universe  Data  Signals  Ranker  Export

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S1: 평가 대상 종목 (Universe)
	// 책임: 로컬 CSV → 원격 CSV → 원격 HTML 순서로 종목 목록 확보
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageData S0: 가격 데이터 수집
	// 책임: 배치 다운로드, 종목별 재시도, 실패 종목 기록
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageSignals S2: 수익률 / 상대강도 계산
	// 책임: 기간별 수익률, 벤치마크 대비 RS, RS Score
	// 위치: internal/s2_signals/
	StageSignals Stage = "S2_SIGNALS"

	// StageRanker S4: 순위 부여
	// 책임: RS Score 내림차순 안정 정렬, Top K 선별
	// 위치: internal/selection/ranker.go
	StageRanker Stage = "S4_RANKER"

	// StageExport S5: 결과 내보내기
	// 책임: CSV / XLSX / HTML / Postgres
	// 위치: internal/export/
	StageExport Stage = "S5_EXPORT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageData:
		return "S0"
	case StageUniverse:
		return "S1"
	case StageSignals:
		return "S2"
	case StageRanker:
		return "S4"
	case StageExport:
		return "S5"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all pipeline stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StageData,
		StageSignals,
		StageRanker,
		StageExport,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// RunStatus is the terminal state of a pipeline run
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed" // ranked table has rows
	RunStatusEmpty     RunStatus = "empty"     // ran to the end, nothing ranked
	RunStatusFailed    RunStatus = "failed"    // run-level fault
)
