package classify

import (
	"fmt"
	"strings"

	"github.com/hsugimura/eizocrawl/internal/extract"
)

const systemInstructions = `あなたは自治体の調達公告を審査する専門家です。以下の文書が、
映像制作・動画制作・配信業務の委託に関する入札公告または公募情報かどうかを判定してください。

判定基準:
- confirmed: 映像・動画・配信業務の調達公告であることが本文から確定できる
- candidate: 映像関連の可能性が高いが、業務範囲や募集状況が本文だけでは確定できない
- excluded: 映像制作とは無関係、または機器購入のみ・過年度の公告

次のJSONオブジェクトのみを出力してください。説明文は不要です。
{
  "label": "confirmed | candidate | excluded",
  "title": "公告の正式名称",
  "prefecture": "都道府県名",
  "summary": "業務内容の要約(1〜2文)",
  "application_deadline": "参加申込の締切 (YYYY-MM-DD、不明なら空文字)",
  "proposal_deadline": "企画提案書等の提出締切 (YYYY-MM-DD、不明なら空文字)",
  "application_url": "申込ページのURL(本文に明記されている場合のみ)",
  "evidence": "判定の根拠となった本文の引用(50文字以内)",
  "memo": "補足があれば簡潔に"
}`

// BuildPrompt renders the classification prompt for one document. The
// body is truncated to maxRunes so oversized PDF dumps do not blow the
// request size limit.
func BuildPrompt(doc *extract.Document, prefecture string, maxRunes int) string {
	body := doc.BodyText
	if maxRunes > 0 {
		if runes := []rune(body); len(runes) > maxRunes {
			body = string(runes[:maxRunes]) + "\n...(省略)"
		}
	}

	var b strings.Builder
	b.WriteString(systemInstructions)
	b.WriteString("\n\n--- 対象文書 ---\n")
	fmt.Fprintf(&b, "URL: %s\n", doc.URL)
	fmt.Fprintf(&b, "都道府県: %s\n", prefecture)
	fmt.Fprintf(&b, "タイトル: %s\n", doc.Title)
	b.WriteString("本文:\n")
	b.WriteString(body)
	return b.String()
}
